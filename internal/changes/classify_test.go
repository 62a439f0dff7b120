package changes

import "testing"

func TestClassify(t *testing.T) {
	changed := []string{
		"actions/a/main.py",
		"actions/a/config.yaml",
		"actions/b/x.txt",
		"other/z.txt",
	}

	folders := Classify(changed, "actions")

	want := []string{"actions/a", "actions/b"}
	if len(folders) != len(want) {
		t.Fatalf("Classify() = %v, want %v", folders, want)
	}
	for i := range want {
		if folders[i] != want[i] {
			t.Errorf("Classify()[%d] = %q, want %q", i, folders[i], want[i])
		}
	}
}

func TestClassify_IgnoresBareRootEntries(t *testing.T) {
	// A path with a single segment under the root names no file inside
	// a task folder and carries no folder identity.
	folders := Classify([]string{"actions/readme.md", "actions"}, "actions")
	if len(folders) != 0 {
		t.Errorf("Classify() = %v, want empty", folders)
	}
}

func TestClassify_NestedFilesShareFolder(t *testing.T) {
	folders := Classify([]string{
		"actions/a/lib/helper.py",
		"actions/a/main.py",
	}, "actions")

	if len(folders) != 1 || folders[0] != "actions/a" {
		t.Errorf("Classify() = %v, want [actions/a]", folders)
	}
}

func TestClassify_Empty(t *testing.T) {
	if folders := Classify(nil, "actions"); len(folders) != 0 {
		t.Errorf("Classify(nil) = %v, want empty", folders)
	}
}

func TestFilesChangedIn(t *testing.T) {
	changed := []string{
		"actions/a/main.py",
		"actions/a/config.yaml",
		"actions/b/x.txt",
		"other/z.txt",
	}

	files := FilesChangedIn("actions/a", changed)

	want := []string{"main.py", "config.yaml"}
	if len(files) != len(want) {
		t.Fatalf("FilesChangedIn() = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("FilesChangedIn()[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestFilesChangedIn_NoMatches(t *testing.T) {
	if files := FilesChangedIn("actions/c", []string{"actions/a/main.py"}); len(files) != 0 {
		t.Errorf("FilesChangedIn() = %v, want empty", files)
	}
}
