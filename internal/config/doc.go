// Package config provides configuration parsing for minstate.
//
// The configuration is stored in minstate.yaml or minstate.json in the
// working directory. Missing fields keep their defaults and the result is
// validated against the struct tags.
//
// # Configuration File Structure
//
//	name: todo
//	debug: true
//	noChangeNoop: false
//	log:
//	  level: debug
//	  format: json
//	inspect:
//	  addr: localhost:7070
//	  eventBuffer: 64
//	  writeTimeout: 5s
//	metrics:
//	  enabled: true
//	  namespace: minstate
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if errors.Is(err, config.ErrNotFound) {
//	    cfg = config.New()
//	} else if err != nil {
//	    log.Fatal(err)
//	}
//
//	st := state.New(nil, cfg.StateOptions(cfg.Logger(os.Stderr))...)
package config
