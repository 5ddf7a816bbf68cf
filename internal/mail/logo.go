package mail

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// LoadLogo reads the brand logo from dir. Emails are sent without it when it is missing.
func LoadLogo(logger *zap.Logger, dir string) *Inline {
	path := filepath.Join(dir, LogoFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Info("Logo not found, proceeding without image", zap.String("path", path), zap.Error(err))
		return nil
	}
	return &Inline{
		Name:      LogoFileName,
		ContentID: LogoContentID,
		Data:      data,
	}
}
