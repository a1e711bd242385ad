// Package refid interprets the SNTP reference identifier field.
package refid

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/brocaar/chirpstack-sntp-bridge/internal/sntp/packets"
)

// NotAvailable is returned when the reference identifier can not be
// interpreted.
const NotAvailable = "N/A"

// DisplayFormat is used to format reference identifiers containing a
// timestamp.
const DisplayFormat = "2006-01-02 15:04:05"

// Config holds the Resolver configuration.
type Config struct {
	// LookupTimeout bounds a single reverse lookup.
	LookupTimeout time.Duration

	// CacheTTL defines how long reverse lookup results are cached.
	CacheTTL time.Duration

	// Location is used to display timestamp reference identifiers.
	// When nil, time.Local is used.
	Location *time.Location

	// LookupAddr performs the reverse lookup. When nil,
	// net.DefaultResolver.LookupAddr is used.
	LookupAddr func(ctx context.Context, addr string) ([]string, error)
}

// Resolver resolves reference identifiers into a human readable form.
type Resolver struct {
	cache         *cache.Cache
	lookupAddr    func(ctx context.Context, addr string) ([]string, error)
	lookupTimeout time.Duration
	location      *time.Location
}

// cacheEntry holds a reverse lookup result. Failures are cached too so that
// an unresolvable reference does not slow down every exchange.
type cacheEntry struct {
	name string
	err  error
}

// NewResolver creates a new Resolver.
func NewResolver(conf Config) *Resolver {
	r := Resolver{
		lookupAddr:    conf.LookupAddr,
		lookupTimeout: conf.LookupTimeout,
		location:      conf.Location,
	}

	if r.lookupAddr == nil {
		r.lookupAddr = net.DefaultResolver.LookupAddr
	}
	if r.lookupTimeout == 0 {
		r.lookupTimeout = time.Second
	}
	if r.location == nil {
		r.location = time.Local
	}

	ttl := conf.CacheTTL
	if ttl == 0 {
		ttl = 10 * time.Minute
	}
	r.cache = cache.New(ttl, 2*ttl)

	return &r
}

// Resolve returns the interpretation of the reference identifier for the
// given stratum and version. The returned error is informational only, the
// returned string always holds a usable value.
func (r *Resolver) Resolve(ctx context.Context, stratum packets.Stratum, version uint8, id [4]byte) (string, error) {
	switch stratum {
	case packets.StratumUnspecified, packets.StratumPrimaryReference:
		return ASCII(id), nil
	case packets.StratumSecondaryReference:
		switch version {
		case 3:
			return r.resolveAddr(ctx, id)
		case 4:
			// small seconds values (e.g. an unsynchronised upstream) fall in
			// era 1 and display as 2036 or later
			return packets.ShortTimestampToTime(id[:]).In(r.location).Format(DisplayFormat), nil
		}
	}

	return NotAvailable, nil
}

// ASCII returns the reference identifier as ASCII tag, with NUL bytes
// removed. Every other byte maps to the character with the same code point,
// so the result is always valid UTF-8.
func ASCII(id [4]byte) string {
	var sb strings.Builder
	for _, b := range id {
		if b != 0 {
			sb.WriteRune(rune(b))
		}
	}
	return sb.String()
}

// IPv4 returns the reference identifier as dotted-decimal IPv4 address.
func IPv4(id [4]byte) string {
	return net.IPv4(id[0], id[1], id[2], id[3]).String()
}

func (r *Resolver) resolveAddr(ctx context.Context, id [4]byte) (string, error) {
	addr := IPv4(id)

	if v, ok := r.cache.Get(addr); ok {
		if e, ok := v.(cacheEntry); ok {
			return e.name, e.err
		}
	}

	e := cacheEntry{name: addr}
	name, err := r.lookup(ctx, addr)
	if err != nil {
		e.err = errors.Wrap(err, "reverse lookup error")
	} else {
		e.name = fmt.Sprintf("%s (%s)", name, addr)
	}

	// don't cache the result of a cancelled caller
	if ctx.Err() == nil {
		r.cache.Set(addr, e, cache.DefaultExpiration)
	}
	return e.name, e.err
}

func (r *Resolver) lookup(ctx context.Context, addr string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.lookupTimeout)
	defer cancel()

	names, err := r.lookupAddr(ctx, addr)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no names found for %s", addr)
	}

	return strings.TrimSuffix(names[0], "."), nil
}
