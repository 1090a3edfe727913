// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services stay free of adapter concerns: besides domain and the
// ports, they reach only for zap logging and the errgroup/rate
// concurrency primitives.
package services
