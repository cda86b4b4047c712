package dispatch

// Fixed user-visible reply strings.
const (
	replyWelcome          = "Привет! Это самый лучший бот! Мяу :3"
	replyRegisterPrompt   = "Пожалуйста, нажмите /start повторно"
	replyContextReset     = "Настройки контекста сброшены!"
	replyNewDialog        = "Новый диалог начался!"
	replyCurrentContext   = "Текущий контекст: \n<code>%s</code>"
	replySettingsPrompt   = "Готов принять настройку контекста. Пожалуйста, отправьте мне сообщение с настройками."
	replyLastContext      = "Последний контекст: <code>%s</code>"
	replySettingsAccepted = "Настройки приняты!"
	replyUnauthorized     = "Вам доступ не разрешён. Наберите /start. По вопросам: @artyone"
	replyBackendFailure   = "Не удалось получить ответ от модели. Попробуйте ещё раз позже."

	adminJoinedNotice = "%d %s Присоединился к боту!"
)
