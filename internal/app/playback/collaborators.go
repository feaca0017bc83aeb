package playback

import (
	"context"

	"github.com/osa030/vidbox/internal/app/notification"
	"github.com/osa030/vidbox/internal/app/permission"
	"github.com/osa030/vidbox/internal/domain/media"
)

// PermissionRequestCode tags the media permission request.
const PermissionRequestCode = 11

// RequiredPermissions are requested together before enumeration.
var RequiredPermissions = []string{permission.ReadMediaVideo, permission.ReadExternalStorage}

// Enumerator lists the video files of the media store.
type Enumerator interface {
	EnumerateVideoFiles(ctx context.Context) ([]media.Record, error)
}

// Permissions checks and requests runtime permissions.
type Permissions interface {
	CheckGranted(name string) bool
	Request(names []string, requestCode int, callback permission.Callback)
}

// Picker shows a list of choices and reports the chosen index.
type Picker interface {
	ShowChoice(title string, labels []string, onChosen func(index int))
}

// Notifier shows transient notifications.
type Notifier interface {
	Notify(n notification.Notification)
}
