// Package binary acquires and installs external executables from release assets.
//
// # Components
//
//   - Choose: picks the release asset for a dependency and platform
//   - Fetcher: streams a URL to disk through a ".part" file with progress
//   - Verifier: SHA-256 checksum files and detached OpenPGP signatures
//   - Installer: extracts zip/tar archives and installs the wanted executables
//
// # Asset Selection
//
// Assets are first filtered by a case-insensitive keyword. Among the matches the
// platform tags are tried in priority order and the first asset containing a tag
// wins; without a tag match the first keyword match is used. In SelectStrict mode
// a release without keyword matches yields nothing. SelectLegacy additionally
// accepts the first asset of the release as a last resort, which is how older
// launchers behaved.
//
// # Atomicity
//
// Nothing is ever written directly to a final path. Downloads and installed
// executables go through a sibling ".part" file that is renamed into place once
// complete, so a concurrent reader sees either the old file or the new one.
// Archive extraction happens in a scratch directory that is removed together with
// the archive on every exit path.
package binary
