// Package provision extracts signing artifacts used by iOS build pipelines.
//
// It covers two jobs that normally sit in front of a resign step:
// pulling the XML plist out of a .mobileprovision file, and recovering a
// base64 secret (P12 or provisioning profile) that was pasted into an RTF
// document.
//
// # Extracting a plist
//
//	data, _ := os.ReadFile("dev.mobileprovision")
//	match, err := provision.ExtractPlist(logger, data, provision.ExtractOptions{})
//	if err != nil {
//	    diag := provision.Diagnose(data)
//	    ...
//	}
//	os.WriteFile("dev.plist", match.Content, 0644)
//
// # Cleaning secrets
//
//	cleaner := provision.NewCleaner(logger)
//	results, err := cleaner.CleanFiles(dir, provision.DefaultSecretFiles)
package provision
