package task

type config struct {
	name string
	obs  Observer
}

// Option configures a Task at construction. Tasks produced by combinators
// inherit the source Task's configuration.
type Option func(*config)

// WithName attaches a name used in observer notifications.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// WithObserver attaches an Observer notified about every Execution of the
// Task and of tasks derived from it.
func WithObserver(obs Observer) Option {
	return func(c *config) { c.obs = obs }
}
