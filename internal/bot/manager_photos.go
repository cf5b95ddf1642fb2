package bot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"shamshouse/internal/domain"
	"shamshouse/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const (
	keyPhotos   = "photos"
	keyUploaded = "uploaded_photos"
)

func (b *Bot) startPhotoCollection(ctx context.Context, chatID, userID int64) {
	if b.photos == nil {
		b.sendMessage(chatID, "Photo upload is not configured.")
		return
	}
	if err := b.stateService.SetUserState(ctx, userID, models.StepCollectPhotos, map[string]interface{}{keyPhotos: []string{}}); err != nil {
		b.sendError(chatID, err)
		return
	}
	b.sendWithKeyboard(chatID, "📷 Send the photos, as pictures or image files. Type /upload when you are done.", cancelKeyboard())
}

// photoFileID picks the largest size of a photo, or an image document.
func photoFileID(msg *tgbotapi.Message) string {
	if n := len(msg.Photo); n > 0 {
		return msg.Photo[n-1].FileID
	}
	if msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/") {
		return msg.Document.FileID
	}
	return ""
}

func (b *Bot) collectPhoto(ctx context.Context, msg *tgbotapi.Message, state *models.UserState) {
	chatID := msg.Chat.ID
	fileID := photoFileID(msg)
	if fileID == "" {
		b.sendMessage(chatID, "⚠️ That is not a picture. Send a photo or type /upload.")
		return
	}
	ids := append(state.GetStrings(keyPhotos), fileID)
	if err := b.stateService.UpdateUserStateData(ctx, msg.From.ID, keyPhotos, ids); err != nil {
		b.sendError(chatID, err)
		return
	}
	b.sendMessage(chatID, fmt.Sprintf("📷 %d photo(s) ready. Send more or type /upload.", len(ids)))
}

func (b *Bot) uploadPhotos(ctx context.Context, chatID, userID int64) {
	if b.photos == nil {
		b.sendMessage(chatID, "Photo upload is not configured.")
		return
	}
	state, err := b.stateService.GetUserState(ctx, userID)
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	var ids []string
	if state != nil && state.CurrentStep == models.StepCollectPhotos {
		ids = state.GetStrings(keyPhotos)
	}
	if len(ids) == 0 {
		b.sendMessage(chatID, "No photos collected. Start with /photos.")
		return
	}

	files := make([]domain.PhotoFile, 0, len(ids))
	for i, id := range ids {
		fileID := id
		files = append(files, domain.PhotoFile{
			Name: fmt.Sprintf("photo_%d.jpg", i+1),
			Open: func(ctx context.Context) (io.ReadCloser, error) {
				data, err := b.tgService.DownloadFile(ctx, fileID)
				if err != nil {
					return nil, err
				}
				return io.NopCloser(bytes.NewReader(data)), nil
			},
		})
	}

	progressMsg, err := b.tgService.SendMessage(chatID, fmt.Sprintf("⬆️ Uploading 0/%d...", len(files)))
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Failed to send upload progress")
	}
	progress := func(done, total int) {
		if progressMsg.MessageID == 0 {
			return
		}
		b.show(chatID, progressMsg.MessageID, fmt.Sprintf("⬆️ Uploading %d/%d...", done, total), nil)
	}

	urls, err := b.photos.Upload(ctx, files, progress)
	var keep map[string]interface{}
	if len(urls) > 0 {
		keep = map[string]interface{}{keyUploaded: urls}
	}
	if resetErr := b.stateService.SetUserState(ctx, userID, models.StepMainMenu, keep); resetErr != nil {
		zerolog.Ctx(ctx).Error().Err(resetErr).Msg("Failed to reset photo state")
	}
	if err != nil {
		b.sendError(chatID, err)
		b.showMainMenu(chatID, userID, "")
		return
	}
	if b.metrics != nil {
		b.metrics.PhotosUploaded.Add(float64(len(urls)))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ Uploaded %d of %d photo(s):\n", len(urls), len(files))
	for _, u := range urls {
		sb.WriteString(u)
		sb.WriteString("\n")
	}
	sb.WriteString("\nThey will be attached to the next /addroom.")
	b.sendWithKeyboard(chatID, sb.String(), b.mainMenuKeyboard(userID))
}
