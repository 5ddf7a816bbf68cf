package lf

import (
	"time"

	"go.uber.org/zap"
)

const (
	FieldModule        = "module"
	FieldEmail         = "email"
	FieldProfessorID   = "professor_id"
	FieldProjectID     = "project_id"
	FieldStudentID     = "student_id"
	FieldApplicationID = "application_id"
	FieldStatus        = "status"
	FieldRemaining     = "remaining"
	FieldURL           = "url"
	FieldClientIP      = "client_ip"
)

func Module(module string) zap.Field {
	return zap.String(FieldModule, module)
}

func Email(email string) zap.Field {
	return zap.String(FieldEmail, email)
}

func ProfessorID(id string) zap.Field {
	return zap.String(FieldProfessorID, id)
}

func ProjectID(id string) zap.Field {
	return zap.String(FieldProjectID, id)
}

func StudentID(id string) zap.Field {
	return zap.String(FieldStudentID, id)
}

func ApplicationID(id string) zap.Field {
	return zap.String(FieldApplicationID, id)
}

func Status(status string) zap.Field {
	return zap.String(FieldStatus, status)
}

func Remaining(d time.Duration) zap.Field {
	return zap.Duration(FieldRemaining, d)
}

func URL(url string) zap.Field {
	return zap.String(FieldURL, url)
}

func ClientIP(ip string) zap.Field {
	return zap.String(FieldClientIP, ip)
}
