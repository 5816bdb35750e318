package texcache

// Config is the serializable form of the cache options.
type Config struct {
	AccurateEmulation  bool `json:"accurate_emulation"`
	ReserveLimit       *int `json:"reserve_limit,omitempty"`
	StagingSlots       int  `json:"staging_slots,omitempty"`
	ConversionWorkers  int  `json:"conversion_workers,omitempty"`
	GuardRenderTargets bool `json:"guard_render_targets"`
	GuardSamplers      bool `json:"guard_samplers"`
}

// Options converts c into options for New. Unset fields keep their defaults.
func (c Config) Options() []Option {
	opts := []Option{
		WithAccurateEmulation(c.AccurateEmulation),
		WithGuardRenderTargets(c.GuardRenderTargets),
		WithGuardSamplers(c.GuardSamplers),
	}
	if c.ReserveLimit != nil {
		opts = append(opts, WithReserveLimit(*c.ReserveLimit))
	}
	if c.StagingSlots > 0 {
		opts = append(opts, WithStagingSlots(c.StagingSlots))
	}
	if c.ConversionWorkers > 0 {
		opts = append(opts, WithConversionWorkers(c.ConversionWorkers))
	}
	return opts
}
