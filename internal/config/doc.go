// Package config provides configuration parsing for scopebind.
//
// The configuration is stored in scopebind.json or scopebind.yaml. Every
// field is optional; missing fields take the Default* values.
//
// # Configuration File Structure
//
//	{
//	  "attributes": {
//	    "bind": "data-bind",
//	    "meta": "data-meta",
//	    "action": "data-action",
//	    "scope": "data-scope-id",
//	    "template": "data-template"
//	  },
//	  "render": {
//	    "chunkThreshold": 200,
//	    "chunkSize": 50,
//	    "pageSize": 0
//	  },
//	  "loop": {
//	    "frameInterval": "16ms",
//	    "fallbackDelay": "16ms"
//	  },
//	  "server": {
//	    "addr": ":8080",
//	    "watch": false
//	  },
//	  "log": {
//	    "level": "info",
//	    "format": "text"
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.LoadFile("scopebind.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	logger := cfg.Logger(os.Stderr)
package config
