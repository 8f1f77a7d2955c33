// Package config provides configuration for the berth tool itself.
//
// The configuration is stored in config.json inside the berth home
// directory (~/.config/berth by default, overridable with BERTH_HOME).
// This package handles loading, saving, and validating it, and resolves
// the paths to the shared registry and lock files.
//
// # Configuration File Structure
//
//	{
//	  "lockTimeout": "10s",
//	  "tld": "test",
//	  "proxyService": "laravel.test",
//	  "secure": true,
//	  "dashboard": {
//	    "addr": "127.0.0.1:4580"
//	  },
//	  "update": {
//	    "manifest": "https://berth.dev/releases.json"
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Registry:", cfg.RegistryPath())
package config
