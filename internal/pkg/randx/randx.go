/*
Package randx provides identifier helpers for the mock fixtures.

User ids are derived deterministically from the email so repeated mock logins observe the same
identity; analysis ids are random Base62 codes.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// Base62Chars is the alphabet used for analysis codes (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the size of the Base62 alphabet.
	Base62Len = int64(len(Base62Chars))

	// AnalysisCodeLength is the length of generated analysis codes.
	AnalysisCodeLength = 10
)

// userNamespace scopes deterministic user ids.
var userNamespace = uuid.MustParse("6f0b1c7e-4a3d-4f8e-9b2a-5c1d7e9f0a11")

// UserID returns a stable UUID for email.
func UserID(email string) string {
	return uuid.NewSHA1(userNamespace, []byte(strings.ToLower(email))).String()
}

// RequestID returns a random UUID v4 string.
func RequestID() string {
	return uuid.New().String()
}

// AnalysisCode generates a Base62 code using crypto/rand.
func AnalysisCode() (string, error) {
	result := make([]byte, AnalysisCodeLength)

	for i := range AnalysisCodeLength {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for analysis code: %w", err)
		}

		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// IsValidAnalysisCode reports whether code has the expected length and alphabet.
func IsValidAnalysisCode(code string) bool {
	if len(code) != AnalysisCodeLength {
		return false
	}

	for _, char := range code {
		if !strings.ContainsRune(Base62Chars, char) {
			return false
		}
	}

	return true
}
