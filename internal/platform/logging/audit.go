package logging

import (
	"context"

	"go.uber.org/zap"
)

// Audit results.
const (
	AuditSuccess = "success"
	AuditFailure = "failure"
)

// LogAuditEvent records a structured audit entry for a state change.
//
// Args:
//   - action: what happened ("link", "invite_code.refresh", "push_token.register", ...)
//   - userID: the user on whose behalf the action ran
//   - resourceType: the kind of resource touched ("profile", "push_token", "notification")
//   - resourceID: the identifier of the touched resource
//   - result: AuditSuccess or AuditFailure
//   - details: optional extra fields; never raw tokens or personal data
func LogAuditEvent(
	ctx context.Context,
	action, userID, resourceType, resourceID, result string,
	details map[string]any,
) {
	LoggerFromContext(ctx).Info("Audit event",
		zap.String("audit.action", action),
		zap.String("audit.user_id", userID),
		zap.String("audit.resource_type", resourceType),
		zap.String("audit.resource_id", resourceID),
		zap.String("audit.result", result),
		zap.Any("audit.details", details),
	)
}
