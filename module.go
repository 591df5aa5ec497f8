package scopedi

// ModuleOption represents a registration action within a module.
type ModuleOption func(*Collection) error

// NewModule creates a new module with the given name and builders.
// Modules are a way to group related service registrations together.
// The first failing builder stops the module and its error is wrapped in a
// ModuleError naming the module.
//
// Example:
//
//	var DatabaseModule = scopedi.NewModule("database",
//	    scopedi.AddSingleton(NewDatabaseConnection),
//	    scopedi.AddScoped(NewUserRepository),
//	    scopedi.AddScoped(NewOrderRepository),
//	)
//
//	var AppModule = scopedi.NewModule("app",
//	    DatabaseModule,
//	    scopedi.AddTransient(NewMailer, scopedi.As[Mailer]()),
//	)
//
//	services := scopedi.NewCollection().AddModules(AppModule)
func NewModule(name string, builders ...ModuleOption) ModuleOption {
	return func(c *Collection) error {
		for _, builder := range builders {
			if builder == nil {
				continue
			}

			if err := builder(c); err != nil {
				return ModuleError{Module: name, Cause: err}
			}
		}

		return nil
	}
}

// AddSingleton creates a ModuleOption for adding a singleton service.
func AddSingleton(service any, opts ...AddOption) ModuleOption {
	return func(c *Collection) error {
		return c.add(Singleton, service, opts...)
	}
}

// AddScoped creates a ModuleOption for adding a scoped service.
func AddScoped(service any, opts ...AddOption) ModuleOption {
	return func(c *Collection) error {
		return c.add(Scoped, service, opts...)
	}
}

// AddTransient creates a ModuleOption for adding a transient service.
func AddTransient(service any, opts ...AddOption) ModuleOption {
	return func(c *Collection) error {
		return c.add(Transient, service, opts...)
	}
}
