package domain

import (
	"fmt"
	"strings"
)

// MaxQuestionLen bounds accepted question length in bytes.
const MaxQuestionLen = 2000

// ValidateQuestion checks a user question before it enters the query pipeline.
func ValidateQuestion(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: question is empty", ErrInvalidQuery)
	}
	if len(text) > MaxQuestionLen {
		return fmt.Errorf("%w: question exceeds %d bytes", ErrInvalidQuery, MaxQuestionLen)
	}
	return nil
}
