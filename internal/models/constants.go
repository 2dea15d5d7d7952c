package models

const (
	STATUS_UP         = "UP"
	STATUS_DEGRADED   = "DEGRADED"
	STATUS_DOWN       = "DOWN"
	HEALTH_ISSUE_NONE = "None reported"

	PUBLISHING_SERVICE = "Publishing Service"
	COLLECTORY         = "Collectory"
	REDIS_CACHE        = "Redis Cache"
	OIDC_PROVIDER      = "OIDC Provider"
)
