// Package deb reads Debian binary packages and APT repository indices.
//
// # Design Philosophy
//
// Everything is parsed in memory from io.Reader or byte slices, without
// temporary files or external tools such as 'dpkg' or 'apt-ftparchive'.
//
// # Features
//
// Packages:
//   - Read the ar container of a .deb file (ReadArchive).
//   - List the control and data tarballs like 'dpkg-deb -c' and parse the
//     control metadata (NewPackage).
//
// Repositories:
//   - Parse Release files, including their MD5Sum, SHA1 and SHA256 file
//     lists, and check downloaded indices against them (ParseRelease).
//   - Pair a Release with its detached Release.gpg signature and verify it
//     against a keyring (NewDist).
package deb
