// Package depotcli drives the external content downloader (DepotDownloader)
// as a child process: binary resolution, the login/Steam-Guard state machine,
// full branch downloads with retry, progress streaming, and cancellation.
//
// The downloader is never invoked through a shell; arguments are always
// passed as a list, and the password is masked before any diagnostic string
// is constructed. At most one child process runs at a time: a second request
// while one is active is rejected with ErrOperationInProgress.
package depotcli
