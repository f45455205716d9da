package resolver

// Pass names one of the resolver's optional behaviors, mirroring
// internal/bytecode/optimizer.go's OptimizationPass enum +
// WithOptimizationPass functional options + isEnabled lookup from the
// teacher repo — reused here for spec.md section 6's resolver options.
type Pass string

const (
	PassRefineToExternal Pass = "refine-to-external"
	PassDesuperify       Pass = "desuperify"
	PassSpecializeRType  Pass = "specialize-rtype"
)

// Option configures a Resolver.
type Option func(*config)

type config struct {
	enabled           map[Pass]bool
	excludedExternals []string
}

func defaultConfig() config {
	return config{
		enabled: map[Pass]bool{
			PassRefineToExternal: false,
			PassDesuperify:       true,
			PassSpecializeRType:  false,
		},
	}
}

func (c config) isEnabled(p Pass) bool {
	if c.enabled == nil {
		return false
	}
	return c.enabled[p]
}

// WithPass enables or disables one resolver pass.
func WithPass(p Pass, enabled bool) Option {
	return func(c *config) {
		if c.enabled == nil {
			c.enabled = make(map[Pass]bool)
		}
		c.enabled[p] = enabled
	}
}

// WithExcludedExternals sets the fully-qualified-name prefix list
// spec.md section 6's excluded_externals option names: any inferred
// rewrite whose target name starts with one of these prefixes is
// rejected.
func WithExcludedExternals(prefixes []string) Option {
	return func(c *config) {
		c.excludedExternals = append([]string(nil), prefixes...)
	}
}

func (c config) isExcluded(name string) bool {
	for _, prefix := range c.excludedExternals {
		if len(name) >= len(prefix) && name[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}
