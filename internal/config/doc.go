// Package config loads cascade.json, the configuration shared by the
// cascade commands.
//
// # Configuration File Structure
//
//	{
//	  "scenarios": "scenarios",
//	  "scheduler": {
//	    "maxReentrantPasses": 10,
//	    "maxFlushPasses": 32
//	  },
//	  "log": {
//	    "level": "info",
//	    "format": "text"
//	  },
//	  "inspect": {
//	    "host": "localhost",
//	    "port": 7357
//	  },
//	  "metrics": {
//	    "namespace": "cascade",
//	    "constLabels": {"env": "dev"}
//	  },
//	  "traces": {
//	    "dir": ".cascade/traces",
//	    "s3": {
//	      "bucket": "my-traces",
//	      "prefix": "cascade/",
//	      "region": "us-east-1"
//	    }
//	  }
//	}
//
// Every field is optional. A missing file yields the defaults.
//
// # Usage
//
//	cfg, err := config.LoadOrDefault(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	logger := cfg.Logger(os.Stderr)
package config
