package instance

import "os"

// GetID identifies this process in logs. Deployments set INSTANCE_ID; bare
// processes fall back to the hostname.
func GetID() string {
	if id := os.Getenv("INSTANCE_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "instance-0"
}
