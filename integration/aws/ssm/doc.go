// Package ssm keeps certificate private keys in AWS Systems Manager
// Parameter Store as SecureString parameters.
//
// Keys live under a configurable prefix, one parameter per certificate
// name, and are written with Overwrite so a renewal replaces the previous
// key in place. Reads decrypt transparently; a missing parameter maps to
// renewal.ErrSecretNotFound so the orchestrator can treat a record whose
// key went missing as absent and reissue.
package ssm
