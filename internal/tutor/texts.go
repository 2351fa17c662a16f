package tutor

import (
	"fmt"
	"slices"
	"strings"

	"github.com/m3rciful/tutorbot/core/telegram/format"
	"github.com/m3rciful/tutorbot/internal/content"
	"github.com/m3rciful/tutorbot/internal/journal"
	"github.com/m3rciful/tutorbot/internal/voice"
)

const (
	textChooseAction = "Выбери действие:"
	textNextAction   = "Что хочешь делать дальше?"

	textTopicsHeader = `📚 *Выбери тему для урока:*

Каждая тема содержит полезные фразы с объяснениями.
Метод Discovery: сначала видишь пример, потом понимаешь правило!

🔊 К каждой фразе есть аудио-произношение!`

	textTopicDone = "🎉 *Отлично! Тема пройдена!*\n\nВыбери следующую тему или попрактикуйся в диалоге."

	textDialogIntro = `💬 *Режим диалога*

Сейчас мы будем общаться на украинском!
Я буду отвечать на украинском и помогать тебе.

*Правила:*
• Пиши на украинском (как можешь)
• 🎤 Можешь отправлять голосовые сообщения!
• Я исправлю ошибки и объясню
• Можешь спрашивать "как сказать...?"

*Начнём с простого:*
Поздоровайся со мной на украинском! 👋

_(Напиши /stop чтобы выйти из диалога)_`

	textDialogReminder = "💬 Мы в режиме диалога. Пиши на украинском!\n\n_(Напиши /stop чтобы выйти из диалога)_"
	textDialogError    = "Извини, произошла ошибка. Попробуй ещё раз!"
	textDialogEnded    = "Диалог завершён!\n\nИспользуй /start для главного меню."
	textListenCaption  = "🔊 Послушай произношение"

	textQuestionIntro = `❓ *Задай вопрос*

Ты можешь спросить меня о чём угодно:
• Как сказать что-то на украинском?
• Почему так пишется/говорится?
• В чём разница между словами?
• Грамматические вопросы

🎤 Можешь спросить голосом!

Напиши свой вопрос:

_(Напиши /stop чтобы вернуться в меню)_`

	textQuestionReminder = "Напиши свой вопрос:\n\n_(Напиши /stop чтобы вернуться в меню)_"
	textQuestionMore     = "\n_Есть ещё вопросы? Пиши! Или /stop для выхода._"
	textQuestionError    = "Произошла ошибка при обработке вопроса. Попробуй ещё раз!"
	textQuestionStopped  = "Возвращаемся в меню. Используй /start"

	textNoExercises   = "Упражнений пока нет. Используй /start для главного меню."
	textAssistantFail = "Произошла ошибка. Попробуй написать текстом или используй /start"

	textVoiceFailed  = "😕 Не удалось распознать голосовое сообщение. Попробуй ещё раз!"
	textVoiceHeard   = "🎤 Я услышал: %s"
	textVoiceOff     = "🔇 Голосовые функции сейчас отключены."
	textVoiceUsage   = "Использование: /voice <фраза на украинском>\nПример: /voice Привіт, як справи?"
	textSynthFailed  = "Не удалось сгенерировать аудио."
	textListenFailed = "⚠️ Не удалось сгенерировать аудио для: %s"
	textVoicePicker  = "🎙 *Выбери голос для озвучки:*"
	textVoiceSet     = "🎙 Голос для озвучки: *%s*"

	textCancelled = "Действие отменено. Используй /start для начала."
	textEnded     = "Используй /start для начала."
)

const textWelcome = `🇺🇦 *Привет, %s!*

Добро пожаловать!

Я помогу тебе выучить украинский язык через метод *Discovery* — учимся на примерах, а не на правилах!

*Как это работает:*
• Ты видишь фразу в контексте
• Я объясняю особенности на русском
• Ты практикуешься через диалоги и переводы
• 🎤 *Можешь отправлять голосовые сообщения!*

*Что умею:*
📚 /lesson — Мини-урок по теме
💬 /dialog — Диалог с AI на украинском
✍️ /translate — Упражнения на перевод
❓ /ask — Задать вопрос об украинском
📊 /progress — Твой прогресс
🔊 /voice — Озвучить фразу

Выбери действие:`

const textHelp = `*Команды:*
/start — Главное меню
/lesson — Мини-урок по теме
/dialog — Диалог с AI на украинском
/translate — Упражнения на перевод
/ask — Задать вопрос об украинском
/progress — Твой прогресс
/voice — Озвучить фразу
/setvoice — Выбрать голос озвучки
/skip — Пропустить упражнение
/stop — Выйти из диалога или вопросов
/cancel — Отменить текущее действие`

// CommandInfo describes a slash command for the bot menu.
type CommandInfo struct {
	Name        string
	Description string
}

// Commands are the commands the tutor understands, in menu order.
var Commands = []CommandInfo{
	{"start", "Главное меню"},
	{"lesson", "Мини-урок по теме"},
	{"dialog", "Диалог с AI на украинском"},
	{"translate", "Упражнения на перевод"},
	{"ask", "Задать вопрос об украинском"},
	{"progress", "Твой прогресс"},
	{"voice", "Озвучить фразу"},
	{"setvoice", "Выбрать голос озвучки"},
	{"skip", "Пропустить упражнение"},
	{"stop", "Выйти из режима"},
	{"cancel", "Отменить текущее действие"},
	{"help", "Список команд"},
}

func welcomeText(firstName string) string {
	if firstName == "" {
		firstName = "друг"
	}
	return fmt.Sprintf(textWelcome, format.Escape(firstName))
}

func mainMenu() [][]Key {
	return [][]Key{
		row(key("📚 Начать урок", Button{Kind: ButtonStartLesson})),
		row(key("💬 Диалог с AI", Button{Kind: ButtonStartDialog})),
		row(key("✍️ Перевод", Button{Kind: ButtonStartTranslate})),
		row(key("❓ Задать вопрос", Button{Kind: ButtonAskQuestion})),
	}
}

func nextActions() [][]Key {
	return mainMenu()[:3]
}

func topicList(c *content.Catalog, done []string) [][]Key {
	kb := make([][]Key, 0, c.Len()+1)
	for _, t := range c.Topics {
		label := t.Title
		if slices.Contains(done, t.ID) {
			label = "✅ " + label
		}
		kb = append(kb, row(key(label, Button{Kind: ButtonTopic, Topic: t.ID})))
	}
	return append(kb, row(key("🔙 Назад", Button{Kind: ButtonBackToMenu})))
}

func phraseText(t content.Topic, i int, p content.Phrase) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s — Фраза %d/%d\n\n", t.Title, i+1, len(t.Phrases))
	fmt.Fprintf(&b, "🇺🇦 *%s*\n🇷🇺 %s\n\n", p.Target, p.Native)
	fmt.Fprintf(&b, "📍 *Контекст:* %s\n\n", p.Context)
	fmt.Fprintf(&b, "💡 *Discovery:* %s\n\n", p.Note)
	fmt.Fprintf(&b, "🔊 *Произношение:* `%s`", p.Pronunciation)
	return b.String()
}

func phraseKeys(topicID string, i int) [][]Key {
	return [][]Key{
		row(key("🔊 Послушать", Button{Kind: ButtonListen, Topic: topicID, Index: i})),
		row(key("➡️ Следующая", Button{Kind: ButtonPhrase, Topic: topicID, Index: i + 1})),
		row(key("🔙 К темам", Button{Kind: ButtonStartLesson})),
	}
}

func exerciseText(ex content.Exercise) string {
	return fmt.Sprintf(`✍️ *Упражнение на перевод*

Переведи на украинский:

🇷🇺 *%s*

💡 Подсказка: %s

🎤 Можешь ответить голосовым сообщением!

_(Напиши свой перевод или /skip чтобы пропустить)_`, ex.Native, ex.Hint)
}

func correctText(streak int) string {
	return fmt.Sprintf(`✅ *Правильно!* Молодец!

🔥 Серия правильных ответов: %d

Напиши /translate для следующего упражнения.`, streak)
}

func incorrectText(answer string, ex content.Exercise, explanation string) string {
	if explanation == "" {
		explanation = "Попробуй обратить внимание на особенности украинского написания."
	}
	return fmt.Sprintf(`❌ *Не совсем так*

Твой ответ: %s
Правильно: *%s*

💡 %s

Напиши /translate для следующего упражнения.`, format.Escape(answer), ex.Target, format.Escape(explanation))
}

// progressView is a copy of the counters taken under the session lock.
type progressView struct {
	completed []string
	total     int
	accuracy  float64
	streak    int
}

func progressText(c *content.Catalog, p progressView, lifetime *journal.Totals) string {
	var b strings.Builder
	b.WriteString("📊 *Твой прогресс*\n\n")
	fmt.Fprintf(&b, "📚 Темы: %d/%d пройдено\n", len(p.completed), c.Len())
	fmt.Fprintf(&b, "✍️ Упражнения: %d выполнено\n", p.total)
	fmt.Fprintf(&b, "✅ Точность: %.1f%%\n", p.accuracy)
	fmt.Fprintf(&b, "🔥 Текущая серия: %d\n", p.streak)
	if lifetime != nil && lifetime.Answers > 0 {
		fmt.Fprintf(&b, "🗂 За всё время: %d ответов, %d верных\n", lifetime.Answers, lifetime.Correct)
	}
	b.WriteString("\n*Пройденные темы:*\n")
	for _, id := range p.completed {
		fmt.Fprintf(&b, "• %s\n", c.Title(id))
	}
	if len(p.completed) == 0 {
		b.WriteString("_Пока нет пройденных тем_\n")
	}
	b.WriteString("\nПродолжай учиться! 💪")
	return b.String()
}

func voicePicker(current string) [][]Key {
	kb := make([][]Key, 0, (len(voice.Voices)+1)/2)
	var line []Key
	for _, v := range voice.Voices {
		label := v
		if v == current {
			label = "✅ " + v
		}
		line = append(line, key(label, Button{Kind: ButtonSetVoice, Voice: v}))
		if len(line) == 2 {
			kb = append(kb, line)
			line = nil
		}
	}
	if len(line) > 0 {
		kb = append(kb, line)
	}
	return kb
}
