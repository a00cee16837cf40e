package douyin

import (
	"math/rand"
	"strconv"
	"strings"
)

// HomeURL is the logged-in landing page; browser sessions start here.
const HomeURL = host

const (
	host = "https://www.douyin.com"

	searchPath       = "/aweme/v1/web/general/search/single/"
	detailPath       = "/aweme/v1/web/aweme/detail/"
	commentListPath  = "/aweme/v1/web/comment/list/"
	commentReplyPath = "/aweme/v1/web/comment/list/reply/"
	userProfilePath  = "/aweme/v1/web/user/profile/other/"
	userPostsPath    = "/aweme/v1/web/aweme/post/"
)

// verifyFp is the browser-verification fingerprint the post listing
// endpoint expects alongside the device params. The site accepts a fixed
// token here.
const verifyFp = "verify_ma3hrt8n_q2q2HyYA_uLyO_4N6D_BLvX_E2LgoGmkA1BU"

const (
	searchPageSize   = 15
	commentPageSize  = 20
	timelinePageSize = 18
)

// commonParams returns the device-fingerprint query parameters every API
// call carries. The values must stay consistent with the user agent the
// session was established under.
func commonParams() map[string]string {
	return map[string]string{
		"device_platform":     "webapp",
		"aid":                 "6383",
		"channel":             "channel_pc_web",
		"version_code":        "190600",
		"version_name":        "19.6.0",
		"update_version_code": "170400",
		"pc_client_type":      "1",
		"cookie_enabled":      "true",
		"browser_language":    "zh-CN",
		"browser_platform":    "MacIntel",
		"browser_name":        "Chrome",
		"browser_version":     "125.0.0.0",
		"browser_online":      "true",
		"engine_name":         "Blink",
		"os_name":             "Mac OS",
		"os_version":          "10.15.7",
		"cpu_core_num":        "8",
		"device_memory":       "8",
		"engine_version":      "109.0",
		"platform":            "PC",
		"screen_width":        "2560",
		"screen_height":       "1440",
		"effective_type":      "4g",
		"round_trip_time":     "50",
	}
}

// webID generates the 19-digit web device id the platform expects,
// following the site's own uuid-flavored generator. Substituted digits can
// expand to two decimal characters; the result is truncated to 19.
func webID() string {
	template := "10000000-1000-4000-8000-100000000000"
	var b strings.Builder
	for _, ch := range template {
		switch ch {
		case '0', '1', '8':
			d := int(ch - '0')
			b.WriteString(strconv.Itoa(d ^ (rand.Intn(16) >> (d / 4))))
		case '-':
			// dropped
		default:
			b.WriteRune(ch)
		}
	}
	id := b.String()
	if len(id) > 19 {
		id = id[:19]
	}
	return id
}
