// Package compose builds a configuration tree from a config directory.
//
// A config directory holds one root file and any number of group
// directories, each with one file per selectable option:
//
//	conf/
//	  config.yaml          root: "db: mysql"
//	  config.schema.json   optional JSON schema for the composed result
//	  db/
//	    mysql.yaml
//	    postgresql.json
//
// Composition happens in this order:
//  1. Locate and parse the root file.
//  2. Resolve group selections from the root and from group overrides.
//  3. Splice each selected option under its group key.
//  4. Apply value overrides (key=value, +key=value, ++key=value, ~key).
//  5. Validate against the schema, if there is one.
//
// Files may be YAML, TOML, JSON or HCL; the extension decides.
package compose
