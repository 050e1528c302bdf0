// Command clean-secrets recovers base64 encoded signing secrets (P12
// certificates, provisioning profiles) that were saved as RTF documents.
//
// # Installation
//
//	go install github.com/aluedeke/go-provtools/cmd/clean-secrets@latest
package main
