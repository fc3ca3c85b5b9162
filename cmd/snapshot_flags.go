package cmd

// addSnapshotFlags adds the various flags for the snapshot command
func addSnapshotFlags() {
	// Config, build and store flags
	addProjectFlags(snapshotCmd)

	// Force
	snapshotCmd.Flags().Bool("force", false, "record a snapshot even if the layout is unchanged since the last one")
}
