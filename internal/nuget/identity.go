// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package nuget

import "strings"

const (
	// PackageExt is the file extension of package archives.
	PackageExt = ".nupkg"

	// UnknownVersion is used when no version can be derived.
	UnknownVersion = "0.0.0"
)

// IdentityFromFileName derives a best-effort identity from an archive file name.
// With at least four dot-separated segments the last three are the version:
// "Foo.Bar.1.2.3.nupkg" gives Foo.Bar 1.2.3. Shorter names keep the whole stem as
// the id with UnknownVersion.
//
// This is a heuristic. Prerelease suffixes and four-part versions are not
// recognized; read the manifest when the real identity matters.
func IdentityFromFileName(fileName string) PackageIdentity {
	stem := strings.TrimSuffix(fileName, PackageExt)
	parts := strings.Split(stem, ".")
	if len(parts) >= 4 {
		return PackageIdentity{
			ID:      strings.Join(parts[:len(parts)-3], "."),
			Version: strings.Join(parts[len(parts)-3:], "."),
		}
	}
	return PackageIdentity{ID: stem, Version: UnknownVersion}
}

// PlaceholderIdentity is the identity given to a file before its manifest has
// been read: the stem as id and UnknownVersion.
func PlaceholderIdentity(fileName string) PackageIdentity {
	return PackageIdentity{ID: strings.TrimSuffix(fileName, PackageExt), Version: UnknownVersion}
}

// IsPackageFile reports whether name has the package archive extension.
func IsPackageFile(name string) bool {
	return strings.HasSuffix(name, PackageExt)
}
