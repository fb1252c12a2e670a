package service

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/redis/go-redis/v9"

	"github.com/aussiebroadwan/zenith-auth/internal/auth/domain"
	"github.com/aussiebroadwan/zenith-auth/internal/auth/store"
	"github.com/aussiebroadwan/zenith-auth/pkg/slogx"
)

// PolicyInput is what a policy sees when deciding capabilities.
type PolicyInput struct {
	Role    domain.Role
	Rank    int
	IsOwner bool
}

// Policy maps a caller's rank and ownership to the capabilities it holds.
type Policy interface {
	Capabilities(ctx context.Context, in PolicyInput) ([]domain.Capability, error)
}

// CapabilityRule grants a capability to every rank at or below MaxRank, and
// to the resource owner when OwnerOverride is set.
type CapabilityRule struct {
	MaxRank       int
	OwnerOverride bool
}

// DefaultCapabilityRules is the built-in rule table.
var DefaultCapabilityRules = map[domain.Capability]CapabilityRule{
	domain.CapRolesAssign:     {MaxRank: 0},
	domain.CapUsersManage:     {MaxRank: 0},
	domain.CapContentModerate: {MaxRank: 1},
	domain.CapClubManage:      {MaxRank: 2, OwnerOverride: true},
	domain.CapProjectEdit:     {MaxRank: 2, OwnerOverride: true},
	domain.CapContentCreate:   {MaxRank: 3},
	domain.CapContentRead:     {MaxRank: 4},
}

// StaticPolicy evaluates a rule table in process.
type StaticPolicy struct {
	Rules map[domain.Capability]CapabilityRule
}

func (p StaticPolicy) Capabilities(_ context.Context, in PolicyInput) ([]domain.Capability, error) {
	rules := p.Rules
	if rules == nil {
		rules = DefaultCapabilityRules
	}
	var caps []domain.Capability
	for name, rule := range rules {
		if in.Rank <= rule.MaxRank || (rule.OwnerOverride && in.IsOwner) {
			caps = append(caps, name)
		}
	}
	slices.Sort(caps)
	return caps, nil
}

//go:embed authz.rego
var defaultRegoPolicy string

const regoQuery = "data.zenith.authz.capabilities"

// RegoPolicy evaluates capabilities with an OPA Rego module. The module
// must define data.zenith.authz.capabilities as a set of capability names.
type RegoPolicy struct {
	query rego.PreparedEvalQuery
}

// NewRegoPolicy compiles src, or the built-in policy when src is empty.
func NewRegoPolicy(ctx context.Context, src string) (*RegoPolicy, error) {
	if src == "" {
		src = defaultRegoPolicy
	}
	compiler, err := ast.CompileModules(map[string]string{"authz.rego": src})
	if err != nil {
		return nil, fmt.Errorf("compile policy: %w", err)
	}
	q, err := rego.New(
		rego.Query(regoQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare policy: %w", err)
	}
	return &RegoPolicy{query: q}, nil
}

func (p *RegoPolicy) Capabilities(ctx context.Context, in PolicyInput) ([]domain.Capability, error) {
	rs, err := p.query.Eval(ctx, rego.EvalInput(map[string]any{
		"role":     string(in.Role),
		"rank":     in.Rank,
		"is_owner": in.IsOwner,
	}))
	if err != nil {
		return nil, fmt.Errorf("evaluate policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return nil, nil
	}
	values, ok := rs[0].Expressions[0].Value.([]any)
	if !ok {
		return nil, fmt.Errorf("policy returned %T, want a set", rs[0].Expressions[0].Value)
	}
	caps := make([]domain.Capability, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			caps = append(caps, domain.Capability(s))
		}
	}
	slices.Sort(caps)
	return caps, nil
}

// RoleCache holds identity roles for a short time. Entries must be dropped
// synchronously whenever a role changes.
//
// Every identity carries a generation that Invalidate bumps. Get reports the
// generation it observed and Set only stores when it is still current, so a
// reader that loaded a role before a change cannot put it back afterwards.
type RoleCache interface {
	Get(ctx context.Context, identityID string) (role domain.Role, gen int64, ok bool, err error)
	Set(ctx context.Context, identityID string, role domain.Role, gen int64) error
	Invalidate(ctx context.Context, identityID string) error
}

// MemoryRoleCache is a process-local RoleCache.
type MemoryRoleCache struct {
	TTL time.Duration
	Now func() time.Time

	mu      sync.Mutex
	entries map[string]roleEntry
	gens    map[string]int64
}

type roleEntry struct {
	role    domain.Role
	expires time.Time
}

func NewMemoryRoleCache(ttl time.Duration) *MemoryRoleCache {
	return &MemoryRoleCache{TTL: ttl, entries: make(map[string]roleEntry), gens: make(map[string]int64)}
}

func (c *MemoryRoleCache) Get(_ context.Context, identityID string) (domain.Role, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	gen := c.gens[identityID]
	e, ok := c.entries[identityID]
	if !ok {
		return "", gen, false, nil
	}
	if !nowFrom(c.Now).Before(e.expires) {
		delete(c.entries, identityID)
		return "", gen, false, nil
	}
	return e.role, gen, true, nil
}

func (c *MemoryRoleCache) Set(_ context.Context, identityID string, role domain.Role, gen int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[identityID] != gen {
		return nil
	}
	if c.entries == nil {
		c.entries = make(map[string]roleEntry)
	}
	c.entries[identityID] = roleEntry{role: role, expires: nowFrom(c.Now).Add(c.TTL)}
	return nil
}

func (c *MemoryRoleCache) Invalidate(_ context.Context, identityID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, identityID)
	if c.gens == nil {
		c.gens = make(map[string]int64)
	}
	c.gens[identityID]++
	return nil
}

// roleGenerationTTL bounds how long an idle generation counter is kept in
// redis. It only has to outlive one read-then-fill cycle.
const roleGenerationTTL = 24 * time.Hour

// setRoleIfCurrent stores KEYS[1] only while the generation in KEYS[2]
// still equals ARGV[2].
var setRoleIfCurrent = redis.NewScript(`
local gen = redis.call('GET', KEYS[2])
if (gen or '0') ~= ARGV[2] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

// RedisRoleCache shares cached roles between instances. The role and its
// generation share a hash tag so the script touches a single slot.
type RedisRoleCache struct {
	Client redis.UniversalClient
	Prefix string
	TTL    time.Duration
}

func (c *RedisRoleCache) keys(identityID string) (role, gen string) {
	prefix := c.Prefix
	if prefix == "" {
		prefix = "zenith:role:"
	}
	role = prefix + "{" + identityID + "}"
	return role, role + ":gen"
}

func (c *RedisRoleCache) Get(ctx context.Context, identityID string) (domain.Role, int64, bool, error) {
	roleKey, genKey := c.keys(identityID)
	vals, err := c.Client.MGet(ctx, roleKey, genKey).Result()
	if err != nil {
		return "", 0, false, err
	}

	var gen int64
	if s, ok := vals[1].(string); ok {
		if gen, err = strconv.ParseInt(s, 10, 64); err != nil {
			return "", 0, false, fmt.Errorf("role generation %q: %w", s, err)
		}
	}
	s, ok := vals[0].(string)
	if !ok {
		return "", gen, false, nil
	}
	role := domain.Role(s)
	if !role.Valid() {
		return "", gen, false, nil
	}
	return role, gen, true, nil
}

func (c *RedisRoleCache) Set(ctx context.Context, identityID string, role domain.Role, gen int64) error {
	roleKey, genKey := c.keys(identityID)
	return setRoleIfCurrent.Run(ctx, c.Client, []string{roleKey, genKey},
		string(role), strconv.FormatInt(gen, 10), c.TTL.Milliseconds()).Err()
}

func (c *RedisRoleCache) Invalidate(ctx context.Context, identityID string) error {
	roleKey, genKey := c.keys(identityID)
	_, err := c.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, roleKey)
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, roleGenerationTTL)
		return nil
	})
	return err
}

// PermissionResolver turns an identity's current role into capabilities.
// Given the same role, scope and rules it always returns the same answer.
type PermissionResolver struct {
	Store  store.Store
	Policy Policy

	// Cache is optional. Without it every resolution reads the store.
	Cache RoleCache

	StoreTimeout time.Duration
}

// Role returns the identity's current role, through the cache when set. A
// role read from the store is only cached if no invalidation happened since
// the cache miss.
func (r *PermissionResolver) Role(ctx context.Context, identityID string) (domain.Role, error) {
	var (
		gen  int64
		fill bool
	)
	if r.Cache != nil {
		role, g, ok, err := r.Cache.Get(ctx, identityID)
		if err != nil {
			slogx.FromContext(ctx).Warn("role cache read failed", "identity_id", identityID, "error", err)
		} else if ok {
			return role, nil
		} else {
			gen, fill = g, true
		}
	}

	ctx, cancel := withTimeout(ctx, r.StoreTimeout)
	defer cancel()

	identity, err := r.Store.Identities().GetByID(ctx, identityID)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrIdentityNotFound
	}
	if err != nil {
		return "", storeErr(err)
	}

	if fill {
		if err := r.Cache.Set(ctx, identityID, identity.Role, gen); err != nil {
			slogx.FromContext(ctx).Warn("role cache write failed", "identity_id", identityID, "error", err)
		}
	}
	return identity.Role, nil
}

// Resolve returns the capabilities the identity holds for scope. A nil
// scope means no resource, so owner overrides never apply.
func (r *PermissionResolver) Resolve(ctx context.Context, identityID string, scope *domain.Scope) (domain.Permissions, error) {
	role, err := r.Role(ctx, identityID)
	if err != nil {
		return domain.Permissions{}, err
	}

	in := PolicyInput{
		Role:    role,
		Rank:    role.Rank(),
		IsOwner: scope != nil && scope.OwnerID != "" && scope.OwnerID == identityID,
	}
	policy := r.Policy
	if policy == nil {
		policy = StaticPolicy{}
	}
	caps, err := policy.Capabilities(ctx, in)
	if err != nil {
		return domain.Permissions{}, err
	}

	return domain.Permissions{
		IdentityID:   identityID,
		Role:         role,
		Rank:         in.Rank,
		Capabilities: caps,
	}, nil
}

// Require resolves permissions and fails with ErrForbidden unless capability
// is among them.
func (r *PermissionResolver) Require(ctx context.Context, identityID string, capability domain.Capability, scope *domain.Scope) (domain.Permissions, error) {
	perms, err := r.Resolve(ctx, identityID, scope)
	if errors.Is(err, ErrIdentityNotFound) {
		return domain.Permissions{}, ErrForbidden
	}
	if err != nil {
		return domain.Permissions{}, err
	}
	if !perms.Has(capability) {
		return perms, ErrForbidden
	}
	return perms, nil
}

// Invalidate drops the cached role of identityID.
func (r *PermissionResolver) Invalidate(ctx context.Context, identityID string) error {
	if r.Cache == nil {
		return nil
	}
	return r.Cache.Invalidate(ctx, identityID)
}
