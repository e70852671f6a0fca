package ids

import "github.com/google/uuid"

// Generate returns a process-unique id for connections and stored objects.
func Generate() string {
	return uuid.NewString()
}
