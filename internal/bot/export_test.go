package bot

// Exports for black-box tests.
var (
	AttachmentOf        = attachmentOf
	AttachmentName      = attachmentName
	IsMediaDocument     = isMediaDocument
	ProgressText        = progressText
	PartialWarning      = partialWarning
	FileTooLargeText    = fileTooLargeText
	DurationTooLongText = durationTooLongText
	DownloadError       = downloadError
)
