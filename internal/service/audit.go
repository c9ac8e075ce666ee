package service

import (
	"context"
	"encoding/json"

	"github.com/divyanshu1906/CrowdFunding-Website/internal/logger"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/models"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/repository"
)

type requestInfoKey struct{}

type requestInfo struct {
	IP        string
	UserAgent string
}

// WithRequestInfo attaches the caller's address and user agent for audit entries.
func WithRequestInfo(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, requestInfo{IP: ip, UserAgent: userAgent})
}

// Auditor writes audit log entries. Failures are logged and never fail the caller.
type Auditor struct {
	repo *repository.AuditRepository
}

func NewAuditor(repo *repository.AuditRepository) *Auditor {
	return &Auditor{repo: repo}
}

func (a *Auditor) Record(ctx context.Context, userID uint, action, resource, resourceID string, meta map[string]interface{}) {
	if a == nil || a.repo == nil {
		return
	}
	entry := &models.AuditLog{Action: action, Resource: resource, ResourceID: resourceID}
	if userID != 0 {
		entry.UserID = &userID
	}
	if info, ok := ctx.Value(requestInfoKey{}).(requestInfo); ok {
		entry.IP = info.IP
		entry.UserAgent = info.UserAgent
	}
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			entry.Metadata = string(b)
		}
	}
	if err := a.repo.Create(context.WithoutCancel(ctx), entry); err != nil {
		logger.Warnf("[audit] %s %s/%s: %v", action, resource, resourceID, err)
	}
}
