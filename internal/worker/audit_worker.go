package worker

import (
	"github.com/spec-kit/eservice/internal/service"
)

// StartAuditWorker registers the audit trail handlers on the event dispatcher.
func StartAuditWorker(auditService *service.AuditService) {
	if auditService == nil {
		return
	}
	auditService.RegisterHandlers()
}
