// Package config handles configuration loading for coven-chat.
//
// # Overview
//
// Configuration is loaded from YAML or TOML files with environment variable
// expansion. The format is chosen by extension: ".toml" is TOML, anything
// else is YAML. Missing values get defaults; when no file exists at all the
// local echo backend is used.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from COVEN_CHAT_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/coven/chat.yaml
//  3. ~/.config/coven/chat.yaml
//
// # Environment Variable Expansion
//
//	assistant:
//	  openai:
//	    api_key: "${OPENAI_API_KEY}"
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	chat:
//	  poll_interval: "300ms"
//	  exchange_timeout: "2m"   # empty means no timeout
//
// # Assistant Backends
//
//	assistant:
//	  kind: gateway            # gateway, openai, echo
//	  gateway:
//	    url: "http://localhost:8080"
//	    agent_id: ""
//	    readiness: "http"      # http (/health/ready), grpc (health service), none
//	    grpc_addr: "localhost:50051"
//	  echo:
//	    latency: "500ms"
//	    startup_delay: "2s"
//
// # Usage
//
//	cfg, err := config.LoadOrDefault(path)
//	if err != nil {
//	    return err
//	}
package config
