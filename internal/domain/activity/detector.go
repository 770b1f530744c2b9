package activity

import (
	"fmt"
	"time"

	"github.com/bryanwahyu/fileguard/internal/domain/threats"
)

// DetectorConfig holds the anomaly thresholds. Zero values fall back to the
// defaults below.
type DetectorConfig struct {
	RapidAccessWindow time.Duration // trailing window for file access counting
	RapidAccessLimit  int           // accesses above this are flagged
	MultiIPWindow     time.Duration // trailing window for distinct IP counting
	MultiIPLimit      int           // distinct IPs above this are flagged
	BruteForceWindow  time.Duration // trailing window for failed logins
	MaxLoginAttempts  int           // failed logins at or above this are flagged
	OffHoursStart     int           // UTC hour below this is off-hours
	OffHoursEnd       int           // UTC hour above this is off-hours
}

func (c *DetectorConfig) applyDefaults() {
	if c.RapidAccessWindow == 0 {
		c.RapidAccessWindow = 10 * time.Minute
	}
	if c.RapidAccessLimit == 0 {
		c.RapidAccessLimit = 20
	}
	if c.MultiIPWindow == 0 {
		c.MultiIPWindow = 10 * time.Minute
	}
	if c.MultiIPLimit == 0 {
		c.MultiIPLimit = 3
	}
	if c.BruteForceWindow == 0 {
		c.BruteForceWindow = time.Hour
	}
	if c.MaxLoginAttempts == 0 {
		c.MaxLoginAttempts = 5
	}
	if c.OffHoursStart == 0 {
		c.OffHoursStart = 6
	}
	if c.OffHoursEnd == 0 {
		c.OffHoursEnd = 23
	}
}

// Detector classifies a newly appended event against the surrounding window.
// Rules are independent: all that trigger fire, none suppresses another.
type Detector struct {
	ledger Ledger
	clock  Clock
	cfg    DetectorConfig
}

func NewDetector(ledger Ledger, clock Clock, cfg DetectorConfig) *Detector {
	cfg.applyDefaults()
	return &Detector{ledger: ledger, clock: clock, cfg: cfg}
}

// Inspect must be invoked synchronously immediately after the event's append,
// inside the same per-user critical section, so two concurrent appends cannot
// both read a stale window and miss a threshold crossing.
func (d *Detector) Inspect(userID string, ev *Event) []threats.Finding {
	var findings []threats.Finding

	recent := d.ledger.Window(userID, d.cfg.RapidAccessWindow)

	accesses := 0
	for _, e := range recent {
		if e.Type == TypeFileAccess {
			accesses++
		}
	}
	if accesses > d.cfg.RapidAccessLimit {
		findings = append(findings, threats.Finding{
			Type:        threats.FindingRapidFileAccess,
			Severity:    threats.SeverityMedium,
			Description: "Unusually high number of file access attempts",
			Evidence:    map[string]any{"count": accesses},
		})
	}

	ips := make(map[string]struct{})
	for _, e := range d.ledger.Window(userID, d.cfg.MultiIPWindow) {
		if e.IPAddress != "" {
			ips[e.IPAddress] = struct{}{}
		}
	}
	if len(ips) > d.cfg.MultiIPLimit {
		findings = append(findings, threats.Finding{
			Type:        threats.FindingMultipleIPs,
			Severity:    threats.SeverityHigh,
			Description: "Account accessed from multiple IP addresses",
			Evidence:    map[string]any{"ip_count": len(ips)},
		})
	}

	// Wall-clock rule, not windowed: fires on every off-hours event.
	hour := d.clock.Now().UTC().Hour()
	if hour < d.cfg.OffHoursStart || hour > d.cfg.OffHoursEnd {
		findings = append(findings, threats.Finding{
			Type:        threats.FindingUnusualTimeAccess,
			Severity:    threats.SeverityLow,
			Description: "Account accessed during unusual hours",
			Evidence:    map[string]any{"hour": hour},
		})
	}

	failed := 0
	for _, e := range d.ledger.Window(userID, d.cfg.BruteForceWindow) {
		if e.Type == TypeLoginFailed {
			failed++
		}
	}
	if failed >= d.cfg.MaxLoginAttempts {
		findings = append(findings, threats.Finding{
			Type:        threats.FindingBruteForceAttempt,
			Severity:    threats.SeverityHigh,
			Description: fmt.Sprintf("%d failed login attempts in last hour", failed),
			Evidence:    map[string]any{"failed_attempts": failed},
			Recommendations: []string{
				"Account temporarily locked",
				"Contact administrator if this was not you",
			},
		})
	}

	return findings
}
