package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"autoblock/ipset"
	"autoblock/logevents"
	"autoblock/waf"

	"github.com/joho/godotenv"
	yaml "gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// State backends.
const (
	BackendS3     = "s3"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Defaults applied before the file and the environment are read.
const (
	DefaultRegion               = "us-west-2"
	DefaultBlockDurationMinutes = 60
	DefaultRequestLimit         = 100
	DefaultSlackIcon            = ":wolf:"
	DefaultScheduleSpec         = "@every 10m"
	DefaultScheduleWindow       = 10 * time.Minute
)

// Config is the top level configuration. Load returns it validated; it is not modified afterwards.
type Config struct {
	Environment string `yaml:"environment"`
	Region      string `yaml:"region"`
	LogFormat   string `yaml:"logFormat"`
	WAFScope    string `yaml:"wafScope"`
	DryRun      bool   `yaml:"dryRun"`

	RateLimit RateLimit `yaml:"rateLimit"`
	State     State     `yaml:"state"`
	S3        S3        `yaml:"s3"`
	Redis     Redis     `yaml:"redis"`
	Logs      Logs      `yaml:"logs"`
	Slack     Slack     `yaml:"slack"`
	Reporting Reporting `yaml:"reporting"`
	TLS       TLS       `yaml:"tls"`
	Schedule  Schedule  `yaml:"schedule"`

	MetricsAddr string `yaml:"metricsAddr"`
	ResultsLog  string `yaml:"resultsLog"`
}

// RateLimit holds the rate limiting processor options.
type RateLimit struct {
	ManualAllowListID    string `yaml:"manualAllowListId"`
	ManualDenyListID     string `yaml:"manualDenyListId"`
	AutoBlockListID      string `yaml:"autoBlockListId"`
	RequestLimit         int    `yaml:"requestLimit"`
	BlockDurationMinutes int    `yaml:"blockDurationMinutes"`

	// CountingWindow is empty for the log format's default.
	CountingWindow string `yaml:"countingWindow"`
	Capacity       int    `yaml:"capacity"`
}

// State selects where violation state is kept. State of logs read from an object store is kept in
// the logs' bucket; Bucket is used for logs read from local files.
type State struct {
	Backend string `yaml:"backend"`
	Bucket  string `yaml:"bucket"`
}

// S3 is the S3 compatible endpoint used for state and logs. Empty credentials use the AWS environment chain.
type S3 struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"accessKeyId"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	Insecure        bool   `yaml:"insecure"`
}

// Redis is the state backend when State.Backend is "redis".
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Logs is where scheduled runs find log objects.
type Logs struct {
	Bucket      string `yaml:"bucket"`
	Prefix      string `yaml:"prefix"`
	Concurrency int    `yaml:"concurrency"`
}

// Slack is the run summary destination. An empty webhook disables notifications.
type Slack struct {
	WebhookURL string `yaml:"webhookUrl"`
	Icon       string `yaml:"icon"`
}

// Reporting tunes the run summary.
type Reporting struct {
	GeoIPDatabase string `yaml:"geoipDatabase"`
	DNSServer     string `yaml:"dnsServer"`
}

// TLS configures the TLS verification processor.
type TLS struct {
	Enabled            bool     `yaml:"enabled"`
	AcceptableVersions []string `yaml:"acceptableVersions"`
	SuppressedPaths    []string `yaml:"suppressedPaths"`
}

// Schedule configures the schedule subcommand.
type Schedule struct {
	Spec   string        `yaml:"spec"`
	Window time.Duration `yaml:"window"`
}

// Load reads the YAML file at path, when not empty, then applies the environment. Variables from the
// envFiles that exist are used where the process environment does not set them.
func Load(path string, envFiles ...string) (c Config, err error) {
	var data []byte
	if path != "" {
		if data, err = os.ReadFile(path); err != nil {
			err = fmt.Errorf("failed to read config file: %w", err)
			return
		}
	}

	env := map[string]string{}
	for _, f := range envFiles {
		if _, statErr := os.Stat(f); statErr != nil {
			continue
		}

		var vars map[string]string
		if vars, err = godotenv.Read(f); err != nil {
			err = fmt.Errorf("failed to read env file %s: %w", f, err)
			return
		}
		for k, v := range vars {
			env[k] = v
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := env[key]
		return v, ok
	}

	return parse(data, lookup)
}

func parse(data []byte, lookup func(string) (string, bool)) (c Config, err error) {
	c = defaults()

	if err = yaml.Unmarshal(data, &c); err != nil {
		err = fmt.Errorf("failed to parse config file: %w", err)
		return
	}

	if err = c.applyEnv(lookup); err != nil {
		return
	}

	err = c.Validate()
	return
}

func defaults() Config {
	return Config{
		Region:    DefaultRegion,
		LogFormat: string(logevents.CloudFront),
		WAFScope:  string(ipset.Global),
		RateLimit: RateLimit{
			RequestLimit:         DefaultRequestLimit,
			BlockDurationMinutes: DefaultBlockDurationMinutes,
			Capacity:             waf.DefaultCapacity,
		},
		State: State{Backend: BackendS3},
		Logs:  Logs{Concurrency: logevents.DefaultConcurrency},
		Slack: Slack{Icon: DefaultSlackIcon},
		Schedule: Schedule{
			Spec:   DefaultScheduleSpec,
			Window: DefaultScheduleWindow,
		},
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s is not a number: %q", ErrInvalid, key, v)
		}
		*dst = n
		return nil
	}

	flag := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s is not a boolean: %q", ErrInvalid, key, v)
		}
		*dst = b
		return nil
	}

	list := func(key string, dst *[]string) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		var out []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		*dst = out
	}

	str("ENVIRONMENT", &c.Environment)
	str("REGION", &c.Region)
	str("MANUAL_WHITELIST_IP_SET_ID", &c.RateLimit.ManualAllowListID)
	str("MANUAL_BLACKLIST_IP_SET_ID", &c.RateLimit.ManualDenyListID)
	str("RATE_LIMIT_AUTO_BLACKLIST_IP_SET_ID", &c.RateLimit.AutoBlockListID)
	str("SLACK_WEB_HOOK_URL", &c.Slack.WebhookURL)
	str("SLACK_ICON", &c.Slack.Icon)
	str("AUTOBLOCK_LOG_FORMAT", &c.LogFormat)
	str("AUTOBLOCK_WAF_SCOPE", &c.WAFScope)
	str("AUTOBLOCK_COUNTING_WINDOW", &c.RateLimit.CountingWindow)
	str("AUTOBLOCK_STATE_BACKEND", &c.State.Backend)
	str("AUTOBLOCK_STATE_BUCKET", &c.State.Bucket)
	str("AUTOBLOCK_S3_ENDPOINT", &c.S3.Endpoint)
	str("AUTOBLOCK_REDIS_ADDR", &c.Redis.Addr)
	str("AUTOBLOCK_REDIS_PASSWORD", &c.Redis.Password)
	str("AUTOBLOCK_LOG_BUCKET", &c.Logs.Bucket)
	str("AUTOBLOCK_LOG_PREFIX", &c.Logs.Prefix)
	str("AUTOBLOCK_SCHEDULE", &c.Schedule.Spec)
	str("AUTOBLOCK_METRICS_ADDR", &c.MetricsAddr)
	str("AUTOBLOCK_RESULTS_LOG", &c.ResultsLog)
	str("AUTOBLOCK_GEOIP_DATABASE", &c.Reporting.GeoIPDatabase)
	str("AUTOBLOCK_DNS_SERVER", &c.Reporting.DNSServer)
	list("TLS_VERIFICATION_SUPPRESSED_PATHS", &c.TLS.SuppressedPaths)

	if err := num("VIOLATION_BLACKLIST_DURATION_IN_MINS", &c.RateLimit.BlockDurationMinutes); err != nil {
		return err
	}
	if err := num("REQUEST_PER_MIN_LIMIT", &c.RateLimit.RequestLimit); err != nil {
		return err
	}

	// The per interval limit only makes sense when the whole batch is one interval.
	if v, ok := lookup("REQUEST_PER_INTERVAL_LIMIT"); ok && v != "" {
		if err := num("REQUEST_PER_INTERVAL_LIMIT", &c.RateLimit.RequestLimit); err != nil {
			return err
		}
		c.RateLimit.CountingWindow = string(waf.PerBatch)
	}

	if err := num("AUTOBLOCK_CAPACITY", &c.RateLimit.Capacity); err != nil {
		return err
	}
	if err := num("AUTOBLOCK_REDIS_DB", &c.Redis.DB); err != nil {
		return err
	}
	if err := flag("AUTOBLOCK_DRY_RUN", &c.DryRun); err != nil {
		return err
	}
	return flag("AUTOBLOCK_TLS_VERIFICATION", &c.TLS.Enabled)
}

// Validate checks that required values are set and enumerations are known.
func (c Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("%w: environment is required", ErrInvalid)
	}

	if c.RateLimit.AutoBlockListID == "" {
		return fmt.Errorf("%w: rateLimit.autoBlockListId is required", ErrInvalid)
	}

	if c.RateLimit.RequestLimit <= 0 {
		return fmt.Errorf("%w: rateLimit.requestLimit must be positive, got %d", ErrInvalid, c.RateLimit.RequestLimit)
	}

	if c.RateLimit.BlockDurationMinutes <= 0 {
		return fmt.Errorf("%w: rateLimit.blockDurationMinutes must be positive, got %d", ErrInvalid, c.RateLimit.BlockDurationMinutes)
	}

	if c.RateLimit.Capacity <= 0 || c.RateLimit.Capacity > waf.DefaultCapacity {
		return fmt.Errorf("%w: rateLimit.capacity must be between 1 and %d, got %d", ErrInvalid, waf.DefaultCapacity, c.RateLimit.Capacity)
	}

	if _, err := logevents.ParseFormat(c.LogFormat); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	switch waf.CountingWindow(c.RateLimit.CountingWindow) {
	case "", waf.PerMinute, waf.PerBatch:
	default:
		return fmt.Errorf("%w: unknown counting window %q", ErrInvalid, c.RateLimit.CountingWindow)
	}

	switch ipset.Scope(c.WAFScope) {
	case ipset.Global, ipset.Regional:
	default:
		return fmt.Errorf("%w: unknown WAF scope %q", ErrInvalid, c.WAFScope)
	}

	switch c.State.Backend {
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("%w: redis.addr is required for the redis backend", ErrInvalid)
		}
	case BackendS3, BackendMemory:
	default:
		return fmt.Errorf("%w: unknown state backend %q", ErrInvalid, c.State.Backend)
	}

	if c.Logs.Concurrency <= 0 {
		return fmt.Errorf("%w: logs.concurrency must be positive, got %d", ErrInvalid, c.Logs.Concurrency)
	}

	if c.Schedule.Window <= 0 {
		return fmt.Errorf("%w: schedule.window must be positive", ErrInvalid)
	}

	return nil
}

// Format returns the log format. It is known to be valid after Load.
func (c Config) Format() logevents.Format {
	f, _ := logevents.ParseFormat(c.LogFormat)
	return f
}

// LocalScope is the scope violation state of local log files is kept under.
func (c Config) LocalScope() string {
	if c.State.Bucket != "" {
		return c.State.Bucket
	}
	return logevents.DefaultLocalScope
}

// RateLimitConfig returns the options of the rate limiting processor.
func (c Config) RateLimitConfig() waf.RateLimitConfig {
	window := waf.CountingWindow(c.RateLimit.CountingWindow)
	if window == "" {
		window = c.Format().DefaultCountingWindow()
	}

	return waf.RateLimitConfig{
		Environment:          c.Environment,
		ManualAllowListID:    c.RateLimit.ManualAllowListID,
		ManualDenyListID:     c.RateLimit.ManualDenyListID,
		AutoBlockListID:      c.RateLimit.AutoBlockListID,
		RequestRateLimit:     c.RateLimit.RequestLimit,
		BlockDurationMinutes: c.RateLimit.BlockDurationMinutes,
		CountingWindow:       window,
		Capacity:             c.RateLimit.Capacity,
	}
}
