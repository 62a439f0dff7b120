package changes

import "strings"

// Classify groups changed paths into task folders under the watched
// root. A path contributes a folder when its first segment equals root
// and it names a file below a direct subfolder; paths directly under
// the root carry no folder identity and are ignored. Each folder
// appears once, in first-seen order.
func Classify(paths []string, root string) []string {
	seen := make(map[string]bool)
	var folders []string

	for _, path := range paths {
		segments := strings.Split(path, "/")
		if len(segments) < 3 || segments[0] != root {
			continue
		}

		folder := segments[0] + "/" + segments[1]
		if !seen[folder] {
			seen[folder] = true
			folders = append(folders, folder)
		}
	}

	return folders
}

// FilesChangedIn filters the change set to files within folder and
// strips the folder prefix.
func FilesChangedIn(folder string, paths []string) []string {
	prefix := folder + "/"
	var files []string

	for _, path := range paths {
		if strings.HasPrefix(path, prefix) {
			files = append(files, strings.TrimPrefix(path, prefix))
		}
	}

	return files
}
