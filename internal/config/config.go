package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Reporting  ReportingConfig  `yaml:"reporting"`
	Endpoints  []Endpoint       `yaml:"endpoints"`

	// URLsFile optionally points at a plain text file with one URL per
	// line, merged after the endpoints list.
	URLsFile string `yaml:"urls_file,omitempty"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type MonitoringConfig struct {
	AlertThreshold      int    `yaml:"alert_threshold"`
	NormalInterval      string `yaml:"normal_interval"`      // e.g. "300s"
	AcceleratedInterval string `yaml:"accelerated_interval"` // e.g. "60s"
	ProbeTimeout        string `yaml:"probe_timeout"`        // e.g. "10s"
	Workers             int    `yaml:"workers"`
	UserAgent           string `yaml:"user_agent"`
	HealthyStatusCodes  []int  `yaml:"healthy_status_codes,omitempty"`

	// Parsed durations (filled after load)
	NormalIntervalDur      time.Duration `yaml:"-"`
	AcceleratedIntervalDur time.Duration `yaml:"-"`
	ProbeTimeoutDur        time.Duration `yaml:"-"`
}

type Endpoint struct {
	URL string `yaml:"url"`

	// Per-endpoint overrides; empty means inherit the monitoring defaults.
	Timeout            string `yaml:"timeout,omitempty"`
	HealthyStatusCodes []int  `yaml:"healthy_status_codes,omitempty"`

	TimeoutDur time.Duration `yaml:"-"`
}

type ReportingConfig struct {
	ReportFile   string `yaml:"report_file"`
	AlertLogFile string `yaml:"alert_log_file"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	if cfg.URLsFile != "" {
		urls, err := loadURLsFile(cfg.URLsFile)
		if err != nil {
			return nil, err
		}
		for _, u := range urls {
			cfg.Endpoints = append(cfg.Endpoints, Endpoint{URL: u})
		}
	}

	applyDefaults(&cfg)

	if err := validateAndNormalize(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadURLsFile reads one URL per line; blank lines and #-comments skipped.
func loadURLsFile(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read urls file: %w", err)
	}

	var urls []string
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = ":8080"
	}

	m := &cfg.Monitoring
	if m.AlertThreshold == 0 {
		m.AlertThreshold = 2
	}
	if strings.TrimSpace(m.NormalInterval) == "" {
		m.NormalInterval = "300s"
	}
	if strings.TrimSpace(m.AcceleratedInterval) == "" {
		m.AcceleratedInterval = "60s"
	}
	if strings.TrimSpace(m.ProbeTimeout) == "" {
		m.ProbeTimeout = "10s"
	}
	if m.Workers <= 0 {
		m.Workers = 8
	}
	if strings.TrimSpace(m.UserAgent) == "" {
		m.UserAgent = "ServerHealthMonitor/1.0"
	}
	if len(m.HealthyStatusCodes) == 0 {
		m.HealthyStatusCodes = []int{200, 201, 202, 204, 301, 302, 304, 307, 308}
	}

	if strings.TrimSpace(cfg.Reporting.ReportFile) == "" {
		cfg.Reporting.ReportFile = "logs/health_check_report.json"
	}
	if strings.TrimSpace(cfg.Reporting.AlertLogFile) == "" {
		cfg.Reporting.AlertLogFile = "logs/health_check_alerts.log"
	}
}

func validateAndNormalize(cfg *Config) error {
	m := &cfg.Monitoring

	if m.AlertThreshold < 1 {
		return fmt.Errorf("config: alert_threshold must be >= 1, got %d", m.AlertThreshold)
	}

	var err error
	if m.NormalIntervalDur, err = parsePositiveDuration("normal_interval", m.NormalInterval); err != nil {
		return err
	}
	if m.AcceleratedIntervalDur, err = parsePositiveDuration("accelerated_interval", m.AcceleratedInterval); err != nil {
		return err
	}
	if m.ProbeTimeoutDur, err = parsePositiveDuration("probe_timeout", m.ProbeTimeout); err != nil {
		return err
	}

	if err := validateStatusCodes("monitoring", m.HealthyStatusCodes); err != nil {
		return err
	}

	if len(cfg.Endpoints) == 0 {
		return errors.New("config: no endpoints provided")
	}

	// Collapse duplicate URLs, keeping the first occurrence so the
	// configured ordering is preserved.
	seen := make(map[string]struct{}, len(cfg.Endpoints))
	unique := cfg.Endpoints[:0]

	for i := range cfg.Endpoints {
		e := cfg.Endpoints[i]
		e.URL = strings.TrimSpace(e.URL)

		if e.URL == "" {
			return fmt.Errorf("config: endpoint[%d] missing url", i)
		}
		if !strings.HasPrefix(e.URL, "http://") && !strings.HasPrefix(e.URL, "https://") {
			return fmt.Errorf("config: endpoint %q url must start with http:// or https://", e.URL)
		}
		if _, ok := seen[e.URL]; ok {
			continue
		}
		seen[e.URL] = struct{}{}

		if strings.TrimSpace(e.Timeout) == "" {
			e.TimeoutDur = m.ProbeTimeoutDur
		} else {
			if e.TimeoutDur, err = parsePositiveDuration("timeout", e.Timeout); err != nil {
				return fmt.Errorf("config: endpoint %q: %w", e.URL, err)
			}
		}

		if len(e.HealthyStatusCodes) == 0 {
			e.HealthyStatusCodes = m.HealthyStatusCodes
		} else if err := validateStatusCodes(e.URL, e.HealthyStatusCodes); err != nil {
			return err
		}

		unique = append(unique, e)
	}
	cfg.Endpoints = unique

	return nil
}

func parsePositiveDuration(name, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", name, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: %s must be > 0, got %q", name, raw)
	}
	return d, nil
}

func validateStatusCodes(owner string, codes []int) error {
	for _, c := range codes {
		if c < 100 || c > 599 {
			return fmt.Errorf("config: %s healthy_status_codes entry %d out of range 100..599", owner, c)
		}
	}
	return nil
}
