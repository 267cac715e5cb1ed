package models

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type ProxyDescriptor struct {
	bun.BaseModel `bun:"table:proxy_descriptors,alias:pd"`

	ID        string     `bun:",pk"`
	Provider  string     `bun:",notnull"`
	Host      string     `bun:",notnull"`
	Port      int        `bun:",notnull"`
	Protocol  Protocol   `bun:",notnull"`
	Username  string     `bun:",nullzero"`
	Password  string     `bun:"-"` // never persisted
	Type      EgressType `bun:",notnull"`
	Country   string     `bun:",nullzero"`
	State     string     `bun:",nullzero"`
	SessionID string     `bun:",nullzero"`

	Health              HealthState `bun:",notnull"`
	LatencyMs           float64     `bun:",notnull,default:0"`
	SuccessCount        int64       `bun:",notnull,default:0"`
	FailureCount        int64       `bun:",notnull,default:0"`
	ConsecutiveFailures int         `bun:",notnull,default:0"`
	ExitIP              string      `bun:",nullzero"`
	ExitCountry         string      `bun:",nullzero"` // as reported by the last probe
	LastUsedAt          time.Time   `bun:",nullzero"`
	LastCheckedAt       time.Time   `bun:",nullzero"`
	QuarantinedAt       time.Time   `bun:",nullzero"`
	CreatedAt           time.Time   `bun:",nullzero,notnull,default:current_timestamp"`

	InUse  bool   `bun:"-"`
	Holder string `bun:"-"` // sticky key of the current holder
}

// NewDescriptor returns a descriptor with a fresh time-sortable ID and
// unknown health. Geographic tags are upper-cased.
func NewDescriptor(provider, host string, port int, protocol Protocol) *ProxyDescriptor {
	return &ProxyDescriptor{
		ID:        NewID(),
		Provider:  provider,
		Host:      host,
		Port:      port,
		Protocol:  protocol,
		Health:    HealthUnknown,
		CreatedAt: time.Now(),
	}
}

// NewID returns a UUIDv7 string; IDs sort by creation time.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SetLocation stores country and state as upper-case codes.
func (d *ProxyDescriptor) SetLocation(country, state string) {
	d.Country = strings.ToUpper(strings.TrimSpace(country))
	d.State = strings.ToUpper(strings.TrimSpace(state))
}

func (d *ProxyDescriptor) Address() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

func (d *ProxyDescriptor) HasAuth() bool {
	return d.Username != "" || d.Password != ""
}

// URL renders scheme://[user:pass@]host:port with URL-encoded credentials.
func (d *ProxyDescriptor) URL() string {
	u := &url.URL{Scheme: string(d.Protocol), Host: d.Address()}
	if d.HasAuth() {
		u.User = url.UserPassword(d.Username, d.Password)
	}
	return u.String()
}

// Redacted is URL with the password masked, safe for logs.
func (d *ProxyDescriptor) Redacted() string {
	u := &url.URL{Scheme: string(d.Protocol), Host: d.Address()}
	if d.HasAuth() {
		u.User = url.UserPassword(d.Username, "xxxxx")
	}
	return u.String()
}

// EndpointKey identifies the upstream endpoint regardless of descriptor ID.
func (d *ProxyDescriptor) EndpointKey() string {
	return fmt.Sprintf("%s|%s|%s|%s", d.Provider, d.Protocol, d.Address(), d.Username)
}

func (d *ProxyDescriptor) IsDead() bool {
	return d.Health == HealthDead
}

// Available reports whether d may be handed to a new, non-sticky caller.
func (d *ProxyDescriptor) Available() bool {
	return !d.InUse && !d.IsDead()
}

// Clone returns a detached copy for callers outside the pool.
func (d *ProxyDescriptor) Clone() *ProxyDescriptor {
	c := *d
	return &c
}
