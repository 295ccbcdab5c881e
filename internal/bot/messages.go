package bot

import (
	"fmt"
	"time"

	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/format"
)

// User-facing texts. The bot speaks Russian.
const (
	MsgGreeting          = "🎙 Привет! Отправь мне голосовое сообщение или аудиофайл."
	MsgProcessing        = "⏳ Обрабатываю аудио..."
	MsgResultPrefix      = "📝 Результат:\n\n"
	MsgAttachmentCaption = "📁 Текст слишком длинный"
	MsgNoAudio           = "❌ Отправьте аудиофайл."
	MsgDecodeFailed      = "❌ Не удалось прочитать аудио. Поддерживаются голосовые сообщения и распространённые аудиоформаты."
	MsgRecognitionFailed = "❌ Ошибка распознавания"
	MsgNotRecognized     = "❌ Не удалось распознать речь"
	MsgDeliveryFailed    = "⚠️ Ошибка отправки результата"
	MsgInternalError     = "⚠️ Внутренняя ошибка сервера"
)

// progressText is shown while part i of n is being recognised.
func progressText(i, n int) string {
	return fmt.Sprintf("⏳ Распознаю часть %d из %d...", i, n)
}

// partialWarning is appended when some parts failed.
func partialWarning(ok, total int) string {
	return fmt.Sprintf("\n\n⚠️ Распознано %d из %d частей", ok, total)
}

func fileTooLargeText(limit int64) string {
	return "❌ Файл слишком большой. Максимальный размер: " + format.Size(limit)
}

func durationTooLongText(limit time.Duration) string {
	return "❌ Аудио слишком длинное. Максимальная длительность: " + format.Duration(limit)
}
