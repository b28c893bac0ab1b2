// Package services contains application services for the MegaVault CLI.
package services
