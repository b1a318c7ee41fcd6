package identity

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"resto-be/pkg/logger"
	"resto-be/pkg/utils"
)

// SMSSender delivers verification codes. Production wires a real gateway;
// development and tests run with the log-only sender.
type SMSSender interface {
	Send(ctx context.Context, phoneNumber, message string) error
}

// logSender writes the message to the log instead of sending it
type logSender struct {
	log *logger.Logger
}

func (s *logSender) Send(ctx context.Context, phoneNumber, message string) error {
	s.log.WithFields(map[string]interface{}{
		"phone":   utils.MaskPhoneNumber(phoneNumber),
		"message": message,
	}).Info("SMS delivery (log only)")
	return nil
}

// generateCode returns a random 6-digit verification code
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
