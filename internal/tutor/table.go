package tutor

import (
	"github.com/m3rciful/tutorbot/internal/session"
)

// trigger is the mode-independent half of a transition key.
type trigger string

const (
	trigText      trigger = "text"
	trigVoiceText trigger = "voice-text"
	trigInvalid   trigger = "invalid"
)

func cmd(name string) trigger { return trigger("cmd:" + name) }

func btn(k ButtonKind) trigger { return trigger("btn:" + string(k)) }

func triggerOf(ev Event) trigger {
	switch ev.Kind {
	case EventCommand:
		return cmd(ev.Command.Name)
	case EventButton:
		return btn(ev.Button.Kind)
	case EventText:
		if ev.FromVoice {
			return trigVoiceText
		}
		return trigText
	}
	return trigInvalid
}

const (
	// anyMode keys rows that apply when no mode-specific row exists.
	anyMode session.Mode = -1
	// same leaves the mode unchanged.
	same session.Mode = -2
)

type route struct {
	mode session.Mode
	trig trigger
}

// transition is one row of the table. handle moves the session to next
// through turn.advance once its result has been applied; failure paths
// skip advance and stay in the current mode.
type transition struct {
	name   string
	next   session.Mode
	handle func(*turn)
}

type table map[route]transition

func (tb table) add(mode session.Mode, tr transition, trigs ...trigger) {
	for _, t := range trigs {
		tb[route{mode, t}] = tr
	}
}

// lookup resolves (mode, trig), falling back from voice-text to text and
// then to the anyMode rows.
func (tb table) lookup(mode session.Mode, trig trigger) (transition, bool) {
	if tr, ok := tb[route{mode, trig}]; ok {
		return tr, true
	}
	if trig == trigVoiceText {
		if tr, ok := tb[route{mode, trigText}]; ok {
			return tr, true
		}
	}
	tr, ok := tb[route{anyMode, trig}]
	return tr, ok
}

func (d *Dispatcher) buildTable() table {
	tb := table{}

	topics := transition{"topics", session.Lesson, d.showTopics}
	dialog := transition{"dialog.start", session.Dialog, d.startDialog}
	translate := transition{"translate.start", session.Translate, d.startTranslate}
	ask := transition{"question.start", session.Question, d.startQuestion}
	assistant := transition{"assistant", session.Choosing, d.assistant}

	tb.add(session.Choosing, topics, cmd("lesson"), btn(ButtonStartLesson))
	tb.add(session.Choosing, dialog, cmd("dialog"), btn(ButtonStartDialog))
	tb.add(session.Choosing, translate, cmd("translate"), btn(ButtonStartTranslate))
	tb.add(session.Choosing, ask, cmd("ask"), btn(ButtonAskQuestion))
	tb.add(session.Choosing, assistant, trigVoiceText)

	tb.add(session.Lesson, transition{"topic", same, d.openTopic}, btn(ButtonTopic))
	tb.add(session.Lesson, transition{"phrase", same, d.showPhrase}, btn(ButtonPhrase))
	tb.add(session.Lesson, transition{"listen", same, d.listen}, btn(ButtonListen))
	tb.add(session.Lesson, topics, btn(ButtonStartLesson))
	tb.add(session.Lesson, transition{"menu", session.Choosing, d.showMenu}, btn(ButtonBackToMenu))
	tb.add(session.Lesson, assistant, trigVoiceText)

	tb.add(session.Dialog, transition{"dialog.turn", same, d.dialogTurn}, trigText)
	tb.add(session.Dialog, transition{"dialog.stop", session.Choosing, d.stopDialog}, cmd("stop"))

	tb.add(session.Translate, transition{"translate.check", session.Choosing, d.checkAnswer}, trigText)
	tb.add(session.Translate, transition{"translate.skip", same, d.startTranslate}, cmd("skip"))

	tb.add(session.Question, transition{"question.answer", same, d.answerQuestion}, trigText)
	tb.add(session.Question, transition{"question.stop", session.Choosing, d.stopQuestion}, cmd("stop"))

	tb.add(anyMode, transition{"cancel", session.Ended, d.cancel}, cmd("cancel"))
	tb.add(anyMode, transition{"start", session.Choosing, d.start}, cmd("start"))
	tb.add(anyMode, transition{"progress", same, d.progress}, cmd("progress"))
	tb.add(anyMode, transition{"voice", same, d.speak}, cmd("voice"))
	tb.add(anyMode, transition{"setvoice", same, d.voicePicker}, cmd("setvoice"))
	tb.add(anyMode, transition{"setvoice.pick", same, d.setVoice}, btn(ButtonSetVoice))
	tb.add(anyMode, transition{"help", same, d.help}, cmd("help"))

	return tb
}

// controlCommands pre-empt the per-user lane.
var controlCommands = map[string]bool{"start": true, "stop": true, "cancel": true}

func isControl(ev Event) bool {
	return ev.Kind == EventCommand && controlCommands[ev.Command.Name]
}
