package redis

import "strings"

const keyNamespace = "sf"

// Keyspace builds the sf:<kind>:<parts...> keys shared by every storefront process.
// Blank parts are dropped, so LockKey("") is sf:lock.
type Keyspace struct{}

func (Keyspace) IdempotencyKey(scope, id string) string { return key("idempotency", scope, id) }
func (Keyspace) RateLimitKey(scope string) string      { return key("rate_limit", scope) }
func (Keyspace) CounterKey(name string) string         { return key("counter", name) }
func (Keyspace) LockKey(name string) string            { return key("lock", name) }

func key(kind string, parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	b.WriteByte(':')
	b.WriteString(kind)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}
