package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateRequestID generates a unique request identifier
func GenerateRequestID() string {
	return "req-" + uuid.NewString()
}

// GenerateServiceID generates a unique service identifier
func GenerateServiceID(serviceType string) string {
	return fmt.Sprintf("%s-%s", serviceType, uuid.NewString()[:8])
}

// GenerateSaveID generates a save-slot identifier with a timestamp prefix
func GenerateSaveID() string {
	return fmt.Sprintf("save-%s-%s", time.Now().Format("20060102-150405"), uuid.NewString()[:8])
}
