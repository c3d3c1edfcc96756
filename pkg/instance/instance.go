package instance

import "os"

// GetID identifies this worker replica in logs. Deployments set WORKER_ID
// per replica; a bare local run gets the default.
func GetID() string {
	id := os.Getenv("WORKER_ID")
	if id == "" {
		return "worker-0"
	}
	return id
}
