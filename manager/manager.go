// Package manager resolves, downloads and caches the driver binaries the
// browsers need: chromedriver, geckodriver, msedgedriver, operadriver,
// IEDriverServer, the Selenium server JAR and a Chromium snapshot. Downloads
// land in a per-user cache and are skipped when a verified copy is already
// present.
package manager

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/blang/semver"
	"github.com/golang/glog"
	"github.com/google/go-github/v27/github"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
)

// Driver identifies a downloadable artifact.
type Driver string

// The artifacts the manager knows how to obtain.
const (
	ChromeDriver    Driver = "chromedriver"
	GeckoDriver     Driver = "geckodriver"
	EdgeDriver      Driver = "msedgedriver"
	OperaDriver     Driver = "operadriver"
	IEDriver        Driver = "iedriver"
	SeleniumServer  Driver = "selenium-server"
	ChromiumBrowser Driver = "chromium"
)

// CacheEnv overrides the cache directory when set.
const CacheEnv = "BROWSEKIT_CACHE"

// Options configures resolution. The zero value resolves the latest
// version into the default cache.
type Options struct {
	// Version pins an artifact version; empty resolves the latest.
	Version string
	// CacheDir overrides the cache directory.
	CacheDir string
	// Client is the HTTP client used for downloads and version lookups.
	Client *http.Client
}

func (o *Options) client() *http.Client {
	if o != nil && o.Client != nil {
		return o.Client
	}
	return http.DefaultClient
}

func (o *Options) version() string {
	if o == nil {
		return ""
	}
	return o.Version
}

// file describes how to obtain one artifact and where its pieces land
// inside a version directory of the cache.
type file struct {
	url      string
	name     string // archive or file name in the version directory
	binary   string // path of the executable inside the version directory, after extraction
	hash     string
	hashType string // md5 or sha256 (the default)
	rename   [2]string
}

// Install returns the path to the driver binary, downloading it first when
// the cache has no verified copy.
func Install(d Driver, o *Options) (string, error) {
	return InstallContext(context.Background(), d, o)
}

// InstallContext is Install with a caller-supplied context.
func InstallContext(ctx context.Context, d Driver, o *Options) (string, error) {
	f, version, err := resolve(ctx, d, o)
	if err != nil {
		return "", err
	}
	dir, err := versionDir(d, version, o)
	if err != nil {
		return "", err
	}
	binPath := filepath.Join(dir, f.binary)
	if _, err := os.Stat(binPath); err == nil {
		glog.V(1).Infof("%s %s already installed at %s", d, version, binPath)
		return binPath, nil
	}

	if err := download(f, dir, o.client()); err != nil {
		return "", fmt.Errorf("%s: %v", d, err)
	}
	if err := extract(f, dir); err != nil {
		return "", fmt.Errorf("%s: %v", d, err)
	}
	if from, to := f.rename[0], f.rename[1]; from != "" {
		src := filepath.Join(dir, from)
		dst := filepath.Join(dir, to)
		os.RemoveAll(dst) // ignore error
		if err := os.Rename(src, dst); err != nil {
			return "", fmt.Errorf("%s: renaming %q to %q: %v", d, src, dst, err)
		}
	}
	if _, err := os.Stat(binPath); err != nil {
		return "", fmt.Errorf("%s: binary %q missing after install: %v", d, binPath, err)
	}
	if err := os.Chmod(binPath, 0755); err != nil {
		return "", err
	}
	glog.Infof("installed %s %s at %s", d, version, binPath)
	return binPath, nil
}

// InstallAll downloads several artifacts concurrently.
func InstallAll(ctx context.Context, drivers []Driver, o *Options) error {
	var group errgroup.Group
	for _, d := range drivers {
		d := d
		group.Go(func() error {
			if _, err := InstallContext(ctx, d, o); err != nil {
				return fmt.Errorf("error handling %s: %v", d, err)
			}
			return nil
		})
	}
	return group.Wait()
}

// CacheDir returns the directory artifacts are installed under.
func CacheDir(o *Options) (string, error) {
	if o != nil && o.CacheDir != "" {
		return o.CacheDir, nil
	}
	if env := os.Getenv(CacheEnv); env != "" {
		return env, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locating user cache dir: %v", err)
	}
	return filepath.Join(base, "browsekit"), nil
}

func versionDir(d Driver, version string, o *Options) (string, error) {
	cache, err := CacheDir(o)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(cache, string(d), version)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

func resolve(ctx context.Context, d Driver, o *Options) (file, string, error) {
	switch d {
	case ChromeDriver:
		return resolveChromeDriver(ctx, o)
	case GeckoDriver:
		return resolveGithubDriver(ctx, o, "mozilla", "geckodriver", "geckodriver")
	case OperaDriver:
		return resolveGithubDriver(ctx, o, "operasoftware", "operachromiumdriver", "operadriver")
	case EdgeDriver:
		return resolveEdgeDriver(ctx, o)
	case IEDriver:
		return ieDriverFile, ieDriverVersion, nil
	case SeleniumServer:
		return seleniumServerFile, seleniumServerVersion, nil
	case ChromiumBrowser:
		return resolveChromium(ctx, o)
	default:
		return file{}, "", fmt.Errorf("unknown driver %q", d)
	}
}

const (
	chromeDriverStorage   = "https://chromedriver.storage.googleapis.com"
	edgeDriverStorage     = "https://msedgedriver.azureedge.net"
	seleniumServerVersion = "3.141.59"
	ieDriverVersion       = "3.150.2"
)

// seleniumServerFile is pinned: the 3.x line is the last one that drives
// IE, and its artifacts are immutable.
var seleniumServerFile = file{
	url:    "https://selenium-release.storage.googleapis.com/3.141/selenium-server-standalone-3.141.59.jar",
	name:   "selenium-server.jar",
	binary: "selenium-server.jar",
	hash:   "acf71b77d1b66b55db6fb0bed6d8bae2bbd481311bcbedfeff472c0d15e8f3cb",
}

// ieDriverFile is the companion binary the Selenium server shells out to for
// Internet Explorer sessions. Win32 is deliberate: the 64-bit build has a
// long-standing sendkeys latency bug.
var ieDriverFile = file{
	url:    "https://selenium-release.storage.googleapis.com/3.150/IEDriverServer_Win32_3.150.2.zip",
	name:   "IEDriverServer.zip",
	binary: "IEDriverServer.exe",
}

func resolveChromeDriver(ctx context.Context, o *Options) (file, string, error) {
	version := o.version()
	if version == "" {
		v, err := fetchString(ctx, o.client(), chromeDriverStorage+"/LATEST_RELEASE")
		if err != nil {
			return file{}, "", fmt.Errorf("resolving latest chromedriver: %v", err)
		}
		version = v
	}
	plat, err := chromePlatform()
	if err != nil {
		return file{}, "", err
	}
	return file{
		url:    fmt.Sprintf("%s/%s/chromedriver_%s.zip", chromeDriverStorage, version, plat),
		name:   "chromedriver.zip",
		binary: exeName("chromedriver"),
	}, version, nil
}

func resolveEdgeDriver(ctx context.Context, o *Options) (file, string, error) {
	version := o.version()
	if version == "" {
		raw, err := fetchString(ctx, o.client(), edgeDriverStorage+"/LATEST_STABLE")
		if err != nil {
			return file{}, "", fmt.Errorf("resolving latest msedgedriver: %v", err)
		}
		// The endpoint serves UTF-16 with a BOM.
		version = asciiOnly(raw)
	}
	plat, err := edgePlatform()
	if err != nil {
		return file{}, "", err
	}
	return file{
		url:    fmt.Sprintf("%s/%s/edgedriver_%s.zip", edgeDriverStorage, version, plat),
		name:   "edgedriver.zip",
		binary: exeName("msedgedriver"),
	}, version, nil
}

// resolveGithubDriver finds the newest release of a driver published on
// GitHub and the release asset for this platform.
func resolveGithubDriver(ctx context.Context, o *Options, owner, repo, binary string) (file, string, error) {
	client := github.NewClient(o.client())
	releases, _, err := client.Repositories.ListReleases(ctx, owner, repo, &github.ListOptions{PerPage: 50})
	if err != nil {
		return file{}, "", fmt.Errorf("listing %s/%s releases: %v", owner, repo, err)
	}

	want := o.version()
	var rel *github.RepositoryRelease
	if want != "" {
		for _, r := range releases {
			if strings.TrimPrefix(r.GetTagName(), "v") == strings.TrimPrefix(want, "v") {
				rel = r
				break
			}
		}
		if rel == nil {
			return file{}, "", fmt.Errorf("%s/%s has no release %q", owner, repo, want)
		}
	} else {
		var tags []string
		byTag := make(map[string]*github.RepositoryRelease)
		for _, r := range releases {
			if r.GetPrerelease() || r.GetDraft() {
				continue
			}
			tags = append(tags, r.GetTagName())
			byTag[r.GetTagName()] = r
		}
		tag, err := latestTag(tags)
		if err != nil {
			return file{}, "", fmt.Errorf("%s/%s: %v", owner, repo, err)
		}
		rel = byTag[tag]
	}

	assetRE, err := platformAssetRE(binary)
	if err != nil {
		return file{}, "", err
	}
	for _, a := range rel.Assets {
		name := a.GetName()
		if !assetRE.MatchString(name) {
			continue
		}
		u := a.GetBrowserDownloadURL()
		if u == "" {
			return file{}, "", fmt.Errorf("%s has no download URL", name)
		}
		f := file{url: u, name: name, binary: exeName(binary)}
		if binary == "operadriver" {
			// The operadriver archive nests the binary in a
			// platform-named directory.
			base := strings.TrimSuffix(name, ".zip")
			f.rename = [2]string{path.Join(base, exeName(binary)), exeName(binary)}
		}
		return f, strings.TrimPrefix(rel.GetTagName(), "v"), nil
	}
	return file{}, "", fmt.Errorf("release %s of %s/%s has no asset for %s/%s",
		rel.GetTagName(), owner, repo, runtime.GOOS, runtime.GOARCH)
}

// latestTag picks the highest semantic version among release tags.
func latestTag(tags []string) (string, error) {
	var (
		best    semver.Version
		bestTag string
	)
	for _, tag := range tags {
		v, err := semver.ParseTolerant(tag)
		if err != nil {
			continue
		}
		if bestTag == "" || v.GT(best) {
			best = v
			bestTag = tag
		}
	}
	if bestTag == "" {
		return "", fmt.Errorf("no parseable release versions among %d tags", len(tags))
	}
	return bestTag, nil
}

// resolveChromium locates the newest Chromium snapshot in the public GCS
// bucket, as the continuous builds are not published anywhere else.
func resolveChromium(ctx context.Context, o *Options) (file, string, error) {
	const (
		bucket         = "chromium-browser-snapshots"
		lastChangeFile = "LAST_CHANGE"
		archive        = "chrome-linux.zip"
	)
	prefix, err := chromiumPrefix()
	if err != nil {
		return file{}, "", err
	}

	client, err := storage.NewClient(ctx, option.WithHTTPClient(o.client()))
	if err != nil {
		return file{}, "", fmt.Errorf("creating storage client: %v", err)
	}
	bkt := client.Bucket(bucket)

	build := o.version()
	if build == "" {
		r, err := bkt.Object(path.Join(prefix, lastChangeFile)).NewReader(ctx)
		if err != nil {
			return file{}, "", fmt.Errorf("reading %s/%s: %v", prefix, lastChangeFile, err)
		}
		defer r.Close()
		data, err := ioutil.ReadAll(r)
		if err != nil {
			return file{}, "", fmt.Errorf("reading %s/%s: %v", prefix, lastChangeFile, err)
		}
		build = strings.TrimSpace(string(data))
	}

	obj := path.Join(prefix, build, archive)
	attrs, err := bkt.Object(obj).Attrs(ctx)
	if err != nil {
		return file{}, "", fmt.Errorf("stat gs://%s/%s: %v", bucket, obj, err)
	}
	return file{
		url:      attrs.MediaLink,
		name:     archive,
		binary:   filepath.Join("chrome-linux", "chrome"),
		hash:     hex.EncodeToString(attrs.MD5),
		hashType: "md5",
	}, build, nil
}

// download fetches f.url into dir/f.name, verifying the hash when one is
// known. A cached archive with a matching hash is reused.
func download(f file, dir string, client *http.Client) error {
	dest := filepath.Join(dir, f.name)
	if f.hash != "" && sameHash(dest, f.hash, f.hashType) {
		glog.Infof("skipping %q which has already been downloaded", f.name)
		return nil
	}
	glog.Infof("downloading %q from %q", f.name, f.url)

	tmp, err := ioutil.TempFile(dir, f.name+".")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) // no-op after the rename

	resp, err := client.Get(f.url)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("downloading %q: %v", f.url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		tmp.Close()
		return fmt.Errorf("downloading %q: %s", f.url, resp.Status)
	}

	h := newHash(f.hashType)
	if _, err := io.Copy(io.MultiWriter(tmp, h), resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("downloading %q: %v", f.url, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if f.hash != "" {
		if sum := hex.EncodeToString(h.Sum(nil)); sum != f.hash {
			return fmt.Errorf("%s: got %s hash %q, want %q", f.name, hashTypeName(f.hashType), sum, f.hash)
		}
	}
	return os.Rename(tmp.Name(), dest)
}

// extract unpacks the downloaded archive with the platform's own tools.
func extract(f file, dir string) error {
	archive := filepath.Join(dir, f.name)
	var cmd []string
	switch path.Ext(f.name) {
	case ".zip":
		cmd = []string{"unzip", "-d", dir, "-o", archive}
	case ".gz":
		cmd = []string{"tar", "-xzf", archive, "-C", dir}
	case ".bz2":
		cmd = []string{"tar", "-xjf", archive, "-C", dir}
	default:
		return nil
	}
	glog.Infof("unpacking %q", archive)
	if out, err := exec.Command(cmd[0], cmd[1:]...).CombinedOutput(); err != nil {
		return fmt.Errorf("unpacking %q: %v: %s", f.name, err, out)
	}
	return nil
}

func sameHash(path, want, hashType string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	h := newHash(hashType)
	if _, err := io.Copy(h, f); err != nil {
		return false
	}
	sum := hex.EncodeToString(h.Sum(nil))
	if sum != want {
		glog.Warningf("file %q: got hash %q, want %q", path, sum, want)
		return false
	}
	return true
}

func newHash(hashType string) hash.Hash {
	if strings.EqualFold(hashType, "md5") {
		return md5.New()
	}
	return sha256.New()
}

func hashTypeName(hashType string) string {
	if strings.EqualFold(hashType, "md5") {
		return "md5"
	}
	return "sha256"
}

func fetchString(ctx context.Context, client *http.Client, url string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// asciiOnly strips everything but printable ASCII, which unwraps UTF-16
// responses without pulling in a decoder.
func asciiOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '!' && r <= '~' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func exeName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

func chromePlatform() (string, error) {
	switch runtime.GOOS {
	case "linux":
		return "linux64", nil
	case "darwin":
		if runtime.GOARCH == "arm64" {
			return "mac_arm64", nil
		}
		return "mac64", nil
	case "windows":
		return "win32", nil
	}
	return "", fmt.Errorf("chromedriver is not published for %s/%s", runtime.GOOS, runtime.GOARCH)
}

func edgePlatform() (string, error) {
	switch runtime.GOOS {
	case "linux":
		return "linux64", nil
	case "darwin":
		return "mac64", nil
	case "windows":
		return "win64", nil
	}
	return "", fmt.Errorf("msedgedriver is not published for %s/%s", runtime.GOOS, runtime.GOARCH)
}

func chromiumPrefix() (string, error) {
	switch runtime.GOOS {
	case "linux":
		return "Linux_x64", nil
	case "darwin":
		return "Mac", nil
	case "windows":
		return "Win_x64", nil
	}
	return "", fmt.Errorf("chromium snapshots are not published for %s/%s", runtime.GOOS, runtime.GOARCH)
}

// platformAssetRE matches a GitHub release asset for this platform.
func platformAssetRE(binary string) (*regexp.Regexp, error) {
	var plat string
	switch {
	case runtime.GOOS == "linux":
		plat = `linux64`
	case runtime.GOOS == "darwin" && runtime.GOARCH == "arm64":
		plat = `(mac_arm64|macos-aarch64)`
	case runtime.GOOS == "darwin":
		plat = `(mac64|macos)`
	case runtime.GOOS == "windows":
		plat = `win64`
	default:
		return nil, fmt.Errorf("%s is not published for %s/%s", binary, runtime.GOOS, runtime.GOARCH)
	}
	return regexp.Compile(binary + `.*` + plat + `\.(zip|tar\.gz)$`)
}
