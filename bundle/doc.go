// Package bundle packages extraction output for distribution.
//
// A bundle is an extraction directory plus a manifest.json describing every
// artifact by raw-payload digest. Bundles can be verified offline and pushed
// to OCI registries as OCI 1.1 artifacts through the oras subpackage.
package bundle
