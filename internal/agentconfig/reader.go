// Package agentconfig reads the connected-machine agent's configuration and
// token metadata files and turns them into a single report row.
package agentconfig

import (
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/arccheck/arccheck/internal/report"
)

// ComponentName is the component label of the configuration row.
const ComponentName = "Agent Configuration"

// ExpiringSoonWindow is how close to expiry a token must be to raise a warning.
const ExpiringSoonWindow = 24 * time.Hour

const (
	keyResourceID = "resourceId"
	keyLocation   = "location"
	keyTenantID   = "tenantId"
	keyExpiresOn  = "expiresOn"

	tenantPrefixLen = 8
)

// Reader produces the configuration row.
type Reader struct {
	ConfigPath string
	TokenPath  string

	// Now defaults to time.Now.
	Now    func() time.Time
	Logger *zap.Logger
}

// ReadAgentConfig reads the configuration file and token metadata. Missing or
// unreadable files are reported in the returned row, never as an error.
func (r *Reader) ReadAgentConfig() report.ComponentStatus {
	log := r.logger()
	info := report.ComponentStatus{Component: ComponentName}

	content, err := readText(r.ConfigPath)
	if err != nil || content == "" {
		log.Debug("agent configuration unavailable", zap.String("path", r.ConfigPath), zap.Error(err))
		info.Status = "not found"
		info.Severity = report.SeverityError
		info.Alert = "missing configuration file"
		return info
	}

	info.Status = "configuration found"
	info.Severity = report.SeverityOK
	info.Details = describeConfig(content)

	r.checkToken(&info)
	return info
}

// describeConfig builds the details summary. Nothing is shown without a
// resource id. The tenant id is cut to its first characters, which is a
// display convenience and not a privacy guarantee.
func describeConfig(content string) string {
	resourceID := ExtractValue(content, keyResourceID)
	if resourceID == "" {
		return ""
	}

	details := "Resource: " + resourceID
	if location := ExtractValue(content, keyLocation); location != "" {
		details += " | Region: " + location
	}
	if tenantID := ExtractValue(content, keyTenantID); tenantID != "" {
		details += " | Tenant: " + truncate(tenantID, tenantPrefixLen) + "..."
	}
	return details
}

func (r *Reader) checkToken(info *report.ComponentStatus) {
	log := r.logger()

	content, err := readText(r.TokenPath)
	if err != nil || content == "" {
		log.Debug("token metadata unavailable", zap.String("path", r.TokenPath), zap.Error(err))
		return
	}

	expiresOn := ExtractValue(content, keyExpiresOn)
	if expiresOn == "" {
		return
	}
	info.Expiration = expiresOn

	if !isDigits(expiresOn) {
		return
	}
	expiry, err := strconv.ParseInt(expiresOn, 10, 64)
	if err != nil {
		log.Debug("ignoring unparseable token expiry", zap.String("expiresOn", expiresOn), zap.Error(err))
		return
	}

	now := r.now().Unix()
	switch {
	case expiry < now:
		info.Alert = "token expired"
		info.Severity = report.SeverityError
	case expiry-now < int64(ExpiringSoonWindow/time.Second):
		info.Alert = "token expiring soon"
		info.Severity = report.SeverityWarning
	}
}

func (r *Reader) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Reader) logger() *zap.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return zap.NewNop()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
