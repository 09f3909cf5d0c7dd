// Package backups uploads build artifacts to the Wurst-Imperium backup
// service.
//
// A backup is one multipart POST to
// <base>/artifact-backups/{project}/{version} carrying every file resolved
// from a path specification. The path specification holds one pattern per
// line: literal paths, globs (including recursive **) or directories, whose
// regular files are included one level deep.
//
// The whole batch is retried on any failure, up to three attempts with a
// five second wait in between.
//
// Example usage:
//
//	client, err := backups.New(
//	    backups.WithAPIKey(os.Getenv("WI_BACKUPS_API_KEY")),
//	    backups.WithLogger(slog.Default()),
//	)
//	if err != nil {
//	    return err
//	}
//
//	outcome, err := client.Backup(ctx, "wurst", "7.51", "build/libs/*.jar")
//	if err != nil {
//	    return err
//	}
//	fmt.Println("uploaded", outcome.FilesUploaded, "files")
package backups
