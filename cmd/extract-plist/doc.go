// Command extract-plist writes the XML plist embedded in a provisioning
// profile to a file.
//
//	extract-plist dev.mobileprovision dev.plist
//
// It exits with status 1 and prints marker diagnostics when no plist is found.
package main
