package shared

import "fmt"

// NATS Subject patterns
const (
	SubjectPrefix = "directory"
	SubjectAll    = "directory.>"

	// directory.<resource>.<event type>
	subjectDirectoryEvent = "directory.%s.%s"
)

// Resource names used in subjects
const (
	ResourceActivities    = "activities"
	ResourceBuildings     = "buildings"
	ResourceOrganizations = "organizations"
)

// Stream names
const (
	StreamDirectory = "DIRECTORY_EVENTS"
)

// Consumer names
const (
	ConsumerAudit = "directory-audit"
)

// DirectorySubject builds the subject for an event on a resource,
// e.g. directory.organizations.updated.
func DirectorySubject(resource, eventType string) string {
	return fmt.Sprintf(subjectDirectoryEvent, resource, eventType)
}
