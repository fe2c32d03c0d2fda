// Package config loads groupwire.toml for the command line tools.
//
// Keys missing from the file keep their defaults; keys present override
// them, even when set to a zero value.
//
// # Configuration File Structure
//
//	[codec]
//	marshaller = "gob"      # gob, cbor or json
//	compression = "none"    # none, lz4, zstd or snappy
//	max_payload = 4194304
//	max_headers = 1024
//
//	[server]
//	addr = "127.0.0.1:7811"
//	read_limit = 1048576
//	tracer_name = "groupwire/inspect"
//
//	[log]
//	level = "info"          # debug, info, warn or error
//	format = "text"         # text or json
//
//	[metrics]
//	enabled = true
//	namespace = "groupwire"
//
// # Usage
//
//	cfg, err := config.Resolve(flagPath)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	codec := message.NewCodec(reg, message.WithLimits(cfg.Limits()))
package config
