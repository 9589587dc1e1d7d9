package sources

import (
	"archive/zip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ConfigFileName marks the root of a data repository. BasePath walks up
// from the working directory until it finds it.
const ConfigFileName = "ambience2abm_config.json"

// A reference to a remote data artefact that can be one of:
//   - An HTTP(S) url to a single file that will be downloaded
//   - An HTTP(S) url to a zip archive that will be downloaded and extracted
//   - A local directory that is used in place
type RemotePath string

// Identifies a single data source tree
type SourceName string

// A path to a local source tree present in the current filesystem
type SourcePath string

// Maps from name to path
var registry map[SourceName]SourcePath = make(map[SourceName]SourcePath)

// Temporary directories created for downloads, removed by
// CleanupTemporaryDirectories.
var temporaryDirectories []string

// Names from remote paths are deduced from the last path element, with
// any archive or workbook extension stripped.
func NameFromRemotePath(remotePath RemotePath) SourceName {
	splits := strings.Split(string(remotePath), "/")
	name := splits[len(splits)-1]
	for _, suffix := range []string{".zip", ".xlsx", ".csv"} {
		name = strings.TrimSuffix(name, suffix)
	}
	return SourceName(name)
}

func RegisterSource(name SourceName, path SourcePath) {
	registry[name] = path
}

func ClearAllSources() {
	for _, dir := range temporaryDirectories {
		os.RemoveAll(dir)
	}
	temporaryDirectories = nil
	registry = make(map[SourceName]SourcePath)
}

func CleanupTemporaryDirectories() {
	for _, dir := range temporaryDirectories {
		os.RemoveAll(dir)
	}
	temporaryDirectories = nil
}

// BaseName returns the name of the data repository itself.
func BaseName() (SourceName, error) {
	path, err := BasePath()
	if err != nil {
		return "", err
	}
	return NameFromRemotePath(RemotePath(path)), nil
}

// BasePath locates the data repository root by walking up from the
// working directory until a directory containing the configuration file
// is found.
func BasePath() (SourcePath, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", errors.Wrap(err, "cannot determine working directory")
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ConfigFileName)); err == nil {
			return SourcePath(dir), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no `%s` found in any parent of the working directory", ConfigFileName)
		}
		dir = parent
	}
}

// GetSource resolves a remote path to a locally readable source tree. A
// registered name is returned as stored. Local directories are registered
// in place. HTTP(S) remotes are downloaded into a temporary directory,
// zip archives are extracted there.
func GetSource(remotePath RemotePath) (SourceName, SourcePath, error) {
	name := NameFromRemotePath(remotePath)

	if path, ok := registry[name]; ok {
		return name, path, nil
	}

	if !strings.HasPrefix(string(remotePath), "http://") && !strings.HasPrefix(string(remotePath), "https://") {
		info, err := os.Stat(string(remotePath))
		if err != nil {
			return "", "", errors.Wrapf(err, "source `%s` is neither a url nor a local path", remotePath)
		}
		path := SourcePath(remotePath)
		if !info.IsDir() {
			path = SourcePath(filepath.Dir(string(remotePath)))
		}
		registry[name] = path
		return name, path, nil
	}

	path, err := fetchFromRemote(remotePath)
	if err != nil {
		return "", "", err
	}
	registry[name] = path
	return name, path, nil
}

// Obtains the path of a source tree from its name
func PathOfSource(name SourceName) (SourcePath, error) {
	if path, ok := registry[name]; ok {
		return path, nil
	}
	return "", fmt.Errorf("Could not find path for source with name `%s`", name)
}

// fetchFromRemote downloads a remote artefact into a fresh temporary
// directory and returns that directory. Zip archives are extracted,
// anything else is stored as a single file.
func fetchFromRemote(remotePath RemotePath) (SourcePath, error) {
	downloadDir, err := os.MkdirTemp("", ".ambience2abm")
	if err != nil {
		return "", err
	}
	temporaryDirectories = append(temporaryDirectories, downloadDir)

	resp, err := http.Get(string(remotePath))
	if err != nil {
		return "", errors.Wrapf(err, "downloading `%s`", remotePath)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading `%s`: %s", remotePath, resp.Status)
	}

	splits := strings.Split(string(remotePath), "/")
	fileName := splits[len(splits)-1]
	filePath := filepath.Join(downloadDir, fileName)
	out, err := os.Create(filePath)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return "", errors.Wrapf(err, "storing `%s`", remotePath)
	}
	if err := out.Close(); err != nil {
		return "", err
	}

	if strings.HasSuffix(fileName, ".zip") {
		if err := extractZip(filePath, downloadDir); err != nil {
			return "", errors.Wrapf(err, "extracting `%s`", fileName)
		}
	}
	return SourcePath(downloadDir), nil
}

func extractZip(archivePath, destDir string) error {
	archive, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer archive.Close()

	for _, file := range archive.File {
		target := filepath.Join(destDir, file.Name)
		// Reject entries escaping the destination directory
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry `%s` escapes the extraction directory", file.Name)
		}
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		in, err := file.Open()
		if err != nil {
			return err
		}
		out, err := os.Create(target)
		if err != nil {
			in.Close()
			return err
		}
		_, err = io.Copy(out, in)
		in.Close()
		out.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// PathInSource resolves a path relative to a named source tree and checks
// that it exists, returning the absolute path.
func PathInSource(name SourceName, path string) (string, error) {
	sourcePath, err := PathOfSource(name)
	if err != nil {
		return "", err
	}
	actualPath := filepath.Join(string(sourcePath), path)
	if _, err := os.Stat(actualPath); err != nil {
		return "", fmt.Errorf("Path `%s` does not seem to be accessible: %s", actualPath, err)
	}
	return actualPath, nil
}
