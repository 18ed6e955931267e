package telegram

import (
	"chaldea/sources/platform"
	"chaldea/sources/texting/transform"
	"chaldea/sources/tracing"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var ErrEmptyText = errors.New("message text is empty")

type sendOptions struct {
	parseMode string
	keyboard  *tgbotapi.InlineKeyboardMarkup
	replyTo   int
	noReply   bool
	silent    bool
}

type Option func(*sendOptions)

func ParseMode(mode string) Option {
	return func(o *sendOptions) { o.parseMode = mode }
}

func Markdown() Option {
	return ParseMode(tgbotapi.ModeMarkdown)
}

func HTML() Option {
	return ParseMode(tgbotapi.ModeHTML)
}

func Keyboard(markup tgbotapi.InlineKeyboardMarkup) Option {
	return func(o *sendOptions) { o.keyboard = &markup }
}

// ReplyTo targets an explicit message and overrides the automatic target.
func ReplyTo(messageID int) Option {
	return func(o *sendOptions) { o.replyTo = messageID }
}

// NoReply suppresses the automatic reply target in group chats.
func NoReply() Option {
	return func(o *sendOptions) { o.noReply = true }
}

func Silent() Option {
	return func(o *sendOptions) { o.silent = true }
}

// Response talks back to the chat an update came from. In non-private chats Reply
// threads under the triggering message unless NoReply or ReplyTo say otherwise.
type Response struct {
	log      *tracing.Logger
	instance *Instance
	diplomat *Diplomat
	chat     *tgbotapi.Chat
	trigger  int
	owners   []int64
	chunk    int
}

func NewResponse(log *tracing.Logger, instance *Instance, diplomat *Diplomat, chat *tgbotapi.Chat, trigger int, owners []int64, chunk int) *Response {
	if chunk <= 0 {
		chunk = 4096
	}
	return &Response{log: log, instance: instance, diplomat: diplomat, chat: chat, trigger: trigger, owners: owners, chunk: chunk}
}

func (x *Response) ChatID() int64 {
	return x.chat.ID
}

func (x *Response) Chat() *tgbotapi.Chat {
	return x.chat
}

func (x *Response) Instance() *Instance {
	return x.instance
}

func (x *Response) options(auto bool, opts []Option) sendOptions {
	o := sendOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if auto && o.replyTo == 0 && !o.noReply && x.chat.Type != platform.ChatPrivate {
		o.replyTo = x.trigger
	}
	return o
}

func (x *Response) base(chatID int64, o sendOptions) tgbotapi.BaseChat {
	base := tgbotapi.BaseChat{ChatID: chatID, ReplyToMessageID: o.replyTo, DisableNotification: o.silent}
	if o.keyboard != nil {
		base.ReplyMarkup = *o.keyboard
	}
	return base
}

// Reply sends text to the chat, split into chunks when it is too long. The keyboard
// and reply target apply to the last and first chunk respectively; the last sent
// message is returned.
func (x *Response) Reply(text string, opts ...Option) (tgbotapi.Message, error) {
	return x.text(x.chat.ID, text, x.options(true, opts))
}

// Send is Reply without the automatic reply target.
func (x *Response) Send(text string, opts ...Option) (tgbotapi.Message, error) {
	return x.text(x.chat.ID, text, x.options(false, opts))
}

func (x *Response) text(chatID int64, text string, o sendOptions) (tgbotapi.Message, error) {
	chunks := transform.Chunks(text, x.chunk)
	if len(chunks) == 0 {
		return tgbotapi.Message{}, ErrEmptyText
	}

	var last tgbotapi.Message
	for i, chunk := range chunks {
		part := o
		if i > 0 {
			part.replyTo = 0
		}
		if i < len(chunks)-1 {
			part.keyboard = nil
		}

		msg := tgbotapi.NewMessage(chatID, chunk)
		msg.BaseChat = x.base(chatID, part)
		msg.ParseMode = part.parseMode

		sent, err := x.diplomat.Send(x.log, x.instance.Bot, x.instance.Self.ID, chatID, msg)
		if err != nil {
			return sent, err
		}
		last = sent
	}
	return last, nil
}

// ReplyInteractive sends a message whose keyboard needs the id of the message that
// carries it. build runs once with 0 for the initial send and again with the real
// id; the second keyboard replaces the first.
func (x *Response) ReplyInteractive(text string, build func(messageID int) (tgbotapi.InlineKeyboardMarkup, error), opts ...Option) (tgbotapi.Message, error) {
	placeholder, err := build(0)
	if err != nil {
		return tgbotapi.Message{}, err
	}

	sent, err := x.Reply(text, append(opts, Keyboard(placeholder))...)
	if err != nil {
		return sent, err
	}

	final, err := build(sent.MessageID)
	if err != nil {
		return sent, err
	}
	if err := x.EditMarkup(sent.MessageID, final); err != nil {
		return sent, err
	}
	return sent, nil
}

func (x *Response) Photo(file tgbotapi.RequestFileData, caption string, opts ...Option) (tgbotapi.Message, error) {
	o := x.options(true, opts)
	c := tgbotapi.NewPhoto(x.chat.ID, file)
	c.BaseChat = x.base(x.chat.ID, o)
	c.Caption, c.ParseMode = caption, o.parseMode
	return x.send(c)
}

func (x *Response) Video(file tgbotapi.RequestFileData, caption string, opts ...Option) (tgbotapi.Message, error) {
	o := x.options(true, opts)
	c := tgbotapi.NewVideo(x.chat.ID, file)
	c.BaseChat = x.base(x.chat.ID, o)
	c.Caption, c.ParseMode = caption, o.parseMode
	return x.send(c)
}

func (x *Response) Audio(file tgbotapi.RequestFileData, caption string, opts ...Option) (tgbotapi.Message, error) {
	o := x.options(true, opts)
	c := tgbotapi.NewAudio(x.chat.ID, file)
	c.BaseChat = x.base(x.chat.ID, o)
	c.Caption, c.ParseMode = caption, o.parseMode
	return x.send(c)
}

func (x *Response) Document(file tgbotapi.RequestFileData, caption string, opts ...Option) (tgbotapi.Message, error) {
	o := x.options(true, opts)
	c := tgbotapi.NewDocument(x.chat.ID, file)
	c.BaseChat = x.base(x.chat.ID, o)
	c.Caption, c.ParseMode = caption, o.parseMode
	return x.send(c)
}

func (x *Response) Animation(file tgbotapi.RequestFileData, caption string, opts ...Option) (tgbotapi.Message, error) {
	o := x.options(true, opts)
	c := tgbotapi.NewAnimation(x.chat.ID, file)
	c.BaseChat = x.base(x.chat.ID, o)
	c.Caption, c.ParseMode = caption, o.parseMode
	return x.send(c)
}

func (x *Response) Voice(file tgbotapi.RequestFileData, caption string, opts ...Option) (tgbotapi.Message, error) {
	o := x.options(true, opts)
	c := tgbotapi.NewVoice(x.chat.ID, file)
	c.BaseChat = x.base(x.chat.ID, o)
	c.Caption, c.ParseMode = caption, o.parseMode
	return x.send(c)
}

func (x *Response) Sticker(file tgbotapi.RequestFileData, opts ...Option) (tgbotapi.Message, error) {
	c := tgbotapi.NewSticker(x.chat.ID, file)
	c.BaseChat = x.base(x.chat.ID, x.options(true, opts))
	return x.send(c)
}

func (x *Response) Location(latitude, longitude float64, opts ...Option) (tgbotapi.Message, error) {
	c := tgbotapi.NewLocation(x.chat.ID, latitude, longitude)
	c.BaseChat = x.base(x.chat.ID, x.options(true, opts))
	return x.send(c)
}

func (x *Response) Poll(question string, options []string, opts ...Option) (tgbotapi.Message, error) {
	c := tgbotapi.NewPoll(x.chat.ID, question, options...)
	c.BaseChat = x.base(x.chat.ID, x.options(true, opts))
	return x.send(c)
}

func (x *Response) Dice(opts ...Option) (tgbotapi.Message, error) {
	c := tgbotapi.NewDice(x.chat.ID)
	c.BaseChat = x.base(x.chat.ID, x.options(true, opts))
	return x.send(c)
}

func (x *Response) EditText(messageID int, text string, opts ...Option) error {
	o := x.options(false, opts)
	c := tgbotapi.NewEditMessageText(x.chat.ID, messageID, text)
	c.ParseMode = o.parseMode
	c.ReplyMarkup = o.keyboard
	return x.request(c)
}

func (x *Response) EditCaption(messageID int, caption string, opts ...Option) error {
	o := x.options(false, opts)
	c := tgbotapi.NewEditMessageCaption(x.chat.ID, messageID, caption)
	c.ParseMode = o.parseMode
	c.ReplyMarkup = o.keyboard
	return x.request(c)
}

func (x *Response) EditMarkup(messageID int, markup tgbotapi.InlineKeyboardMarkup) error {
	return x.request(tgbotapi.NewEditMessageReplyMarkup(x.chat.ID, messageID, markup))
}

func (x *Response) EditMedia(messageID int, media any, opts ...Option) error {
	o := x.options(false, opts)
	c := tgbotapi.EditMessageMediaConfig{
		BaseEdit: tgbotapi.BaseEdit{ChatID: x.chat.ID, MessageID: messageID, ReplyMarkup: o.keyboard},
		Media:    media,
	}
	return x.request(c)
}

func (x *Response) Delete(messageID int) error {
	return x.request(tgbotapi.NewDeleteMessage(x.chat.ID, messageID))
}

// Action shows a chat action such as tgbotapi.ChatTyping.
func (x *Response) Action(action string) error {
	return x.request(tgbotapi.NewChatAction(x.chat.ID, action))
}

func (x *Response) AnswerCallback(queryID string, text string, alert bool) error {
	c := tgbotapi.NewCallback(queryID, text)
	c.ShowAlert = alert
	return x.request(c)
}

// ForOwner sends text privately to every owner. Delivery continues past failures and
// the first error is returned.
func (x *Response) ForOwner(text string, opts ...Option) error {
	var first error
	for _, owner := range x.owners {
		if _, err := x.text(owner, text, x.options(false, opts)); err != nil {
			x.log.W("Failed to notify owner", tracing.UserId, owner, tracing.InnerError, err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

func (x *Response) send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return x.diplomat.Send(x.log, x.instance.Bot, x.instance.Self.ID, x.chat.ID, c)
}

func (x *Response) request(c tgbotapi.Chattable) error {
	_, err := x.diplomat.Request(x.log, x.instance.Bot, x.instance.Self.ID, x.chat.ID, c)
	return err
}
