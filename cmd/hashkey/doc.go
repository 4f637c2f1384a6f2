// Command hashkey manages the API keys of the family media service.
//
// Keys are never stored in clear text. The service reads API_KEYS, a comma
// separated list of Role:hash or Role:name:hash entries where hash is a
// bcrypt hash of the key. This tool produces those entries.
//
// Usage:
//
//	hashkey <command> [role] [name]
//
// Commands:
//
//	generate  Create a random key for the given role and print both the key
//	          and its API_KEYS entry.
//
//	hash      Prompt for a key (twice, without echo) and print its entry.
//	          Keys shorter than 16 characters are rejected.
//
//	verify    Prompt for a key and report which API_KEYS entry, if any, it
//	          matches and the role it grants.
//
// Environment:
//
//	API_KEYS - The configured keys, read by verify
package main
