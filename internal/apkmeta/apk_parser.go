package apkmeta

import (
	"fmt"

	"github.com/shogo82148/androidbinary/apk"
)

// apkParser reads the binary AndroidManifest.xml inside an .apk via
// shogo82148/androidbinary.
type apkParser struct{}

func (apkParser) Parse(path string) (meta Metadata, err error) {
	// The manifest accessors panic on malformed resource tables; a corrupt
	// upload must degrade to the sentinel, not kill the request.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("apkmeta: manifest parse panic: %v", r)
		}
	}()

	pkg, err := apk.OpenFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("apkmeta: open %s: %w", path, err)
	}
	defer pkg.Close()

	meta = Sentinel()
	if name := pkg.PackageName(); name != "" {
		meta.AppID = name
	}
	if label, lerr := pkg.Label(nil); lerr == nil && label != "" {
		meta.AppName = label
	}

	manifest := pkg.Manifest()
	if v, verr := manifest.VersionName.String(); verr == nil && v != "" {
		meta.VersionName = v
	}
	if c, cerr := manifest.VersionCode.Int32(); cerr == nil {
		meta.VersionCode = int(c)
	}
	return meta, nil
}
