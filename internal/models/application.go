package models

import (
	"fmt"
	"strings"
)

const (
	ApplicationStatusPending  = "PENDING"
	ApplicationStatusAccepted = "ACCEPTED"
	ApplicationStatusRejected = "REJECTED"
)

type ApplicationStatus = string

type Application struct {
	Model

	Status      ApplicationStatus `gorm:"index"`
	CoverLetter *string

	StudentID string `gorm:"uniqueIndex:idx_application"`
	Student   Student
	ProjectID string `gorm:"uniqueIndex:idx_application"`
	Project   Project
}

// ParseDecision accepts the two statuses a reviewer may set.
func ParseDecision(status string) (ApplicationStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case ApplicationStatusAccepted:
		return ApplicationStatusAccepted, nil
	case ApplicationStatusRejected:
		return ApplicationStatusRejected, nil
	default:
		return "", fmt.Errorf("invalid status %q, expected ACCEPTED or REJECTED", status)
	}
}

func IsKnownStatus(status string) bool {
	switch status {
	case ApplicationStatusPending, ApplicationStatusAccepted, ApplicationStatusRejected:
		return true
	}
	return false
}
