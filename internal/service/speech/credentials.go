package speech

import (
	"errors"
	"strings"

	speechmodel "github.com/zhouzirui/heartchat/backend/internal/model/speech"
)

var errMissingCredentials = errors.New("火山引擎语音配置缺少 AppID 或 AccessToken")

// resolveCredentials 返回去除空白后的 AppID 与 AccessToken。
func resolveCredentials(cfg speechmodel.Config) (string, string, error) {
	appID := strings.TrimSpace(cfg.AppID)
	token := strings.TrimSpace(cfg.AccessToken)
	if appID == "" || token == "" {
		return "", "", errMissingCredentials
	}
	return appID, token, nil
}
