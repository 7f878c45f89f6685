// Package config provides configuration for the editstream command.
//
// Settings are read from editstream.json and then overridden by
// EDITSTREAM_* environment variables. Every field is optional; missing
// values take the defaults from New.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "listen": ":8080",
//	    "codec": "cbor",
//	    "ackTimeout": "10s",
//	    "pingInterval": "20s",
//	    "eventBuffer": 64
//	  },
//	  "interp": {
//	    "budget": "4ms"
//	  },
//	  "journal": {
//	    "capacity": 256,
//	    "s3": {
//	      "bucket": "editstream-journal",
//	      "region": "us-east-1"
//	    }
//	  },
//	  "log": {
//	    "level": "debug",
//	    "format": "json"
//	  },
//	  "metrics": {
//	    "namespace": "editstream"
//	  }
//	}
//
// # Environment
//
// Nested settings join their section names with underscores:
// EDITSTREAM_SERVER_LISTEN, EDITSTREAM_JOURNAL_S3_BUCKET,
// EDITSTREAM_LOG_LEVEL.
//
// # Usage
//
//	cfg, err := config.Resolve("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listen:", cfg.Server.Listen)
package config
