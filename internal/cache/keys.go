package cache

import (
	"crypto/sha256"
	"fmt"

	"github.com/google/uuid"
)

func JobStatusKey(jobID uuid.UUID) string {
	return fmt.Sprintf("job:%s", jobID)
}

// ResultKey addresses a completed analysis by a digest of its inputs.
func ResultKey(text, purpose string) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(purpose))
	return fmt.Sprintf("analysis:result:%x", h.Sum(nil))
}
