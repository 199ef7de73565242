package domain

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("access denied")
	ErrInvalidInput = errors.New("invalid input")
)

const (
	ClientStatusActive   = "Ativo"
	ClientStatusInactive = "Inativo"

	ConversationIndividual = "individual"
	ConversationGroup      = "group"

	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"

	VideoStatusSuccess = "success"
	VideoStatusError   = "error"

	DefaultRole = "Membro"
)

type User struct {
	ID              string    `json:"id"`
	FirebaseUID     *string   `json:"firebase_uid,omitempty"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	Role            string    `json:"role"`
	Phone           *string   `json:"phone,omitempty"`
	Bio             *string   `json:"bio,omitempty"`
	ProfilePhotoURL *string   `json:"profile_photo_url,omitempty"`
	BannerURL       *string   `json:"banner_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// UserSummary is the participant/sender shape embedded in chat payloads.
type UserSummary struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Role            string  `json:"role,omitempty"`
	ProfilePhotoURL *string `json:"profile_photo_url,omitempty"`
}

type Client struct {
	ID                  string     `json:"id"`
	NomeEmpresa         string     `json:"nome_empresa"`
	NomeCliente         *string    `json:"nome_cliente,omitempty"`
	Email               *string    `json:"email,omitempty"`
	Numero              *string    `json:"numero,omitempty"`
	Genero              *string    `json:"genero,omitempty"`
	Aniversario         *time.Time `json:"aniversario,omitempty"`
	CnpjCpf             *string    `json:"cnpj_cpf,omitempty"`
	Tag                 *string    `json:"tag,omitempty"`
	Segmento            *string    `json:"segmento,omitempty"`
	Nicho               *string    `json:"nicho,omitempty"`
	CanalVenda          *string    `json:"canal_venda,omitempty"`
	ServicosContratados *string    `json:"servicos_contratados,omitempty"`
	ValorServico        *float64   `json:"valor_servico,omitempty"`
	FaturamentoMedio    *float64   `json:"faturamento_medio,omitempty"`
	ModeloPagamento     *string    `json:"modelo_pagamento,omitempty"`
	DiaPagamento        *int       `json:"dia_pagamento,omitempty"`
	Endereco            *string    `json:"endereco,omitempty"`
	NumeroEndereco      *string    `json:"numero_endereco,omitempty"`
	Cidade              *string    `json:"cidade,omitempty"`
	Estado              *string    `json:"estado,omitempty"`
	Cep                 *string    `json:"cep,omitempty"`
	Status              string     `json:"status"`
	DataInicio          *time.Time `json:"data_inicio,omitempty"`
	DataEncerramento    *time.Time `json:"data_encerramento,omitempty"`
	DriveFolderID       *string    `json:"drive_folder_id,omitempty"`
	DriveFolderLink     *string    `json:"drive_folder_link,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

type ClientCredential struct {
	ID             string    `json:"id"`
	ClientID       string    `json:"client_id"`
	CredentialType string    `json:"credential_type"`
	PlatformName   string    `json:"platform_name"`
	Login          *string   `json:"login,omitempty"`
	Password       *string   `json:"password,omitempty"`
	Notes          *string   `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type Conversation struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Name      *string   `json:"name,omitempty"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConversationSummary is the list shape the chat widget renders: conversation,
// its participants, the last message and the caller's unread count.
type ConversationSummary struct {
	ID               string        `json:"id"`
	Type             string        `json:"type"`
	Name             *string       `json:"name,omitempty"`
	IsGroup          bool          `json:"isGroup"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
	LastMessage      *string       `json:"last_message,omitempty"`
	LastMessageAt    time.Time     `json:"last_message_at"`
	UnreadCount      int64         `json:"unreadCount"`
	ParticipantCount int           `json:"participantCount"`
	Participants     []UserSummary `json:"participants"`
}

type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	SenderID       string      `json:"sender_id"`
	Content        string      `json:"content"`
	CreatedAt      time.Time   `json:"created_at"`
	Sender         UserSummary `json:"sender"`
}

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Content   *string   `json:"content,omitempty"`
	Link      *string   `json:"link,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

type CustomTool struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Category    string    `json:"category"`
	IconName    string    `json:"icon_name"`
	CreatedBy   string    `json:"created_by"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

type DownloadJob struct {
	ID                   string    `json:"id"`
	UserID               string    `json:"user_id"`
	Status               string    `json:"status"`
	TotalVideos          int       `json:"total_videos"`
	CompletedVideos      int       `json:"completed_videos"`
	CurrentVideoTitle    *string   `json:"current_video_title,omitempty"`
	CurrentVideoProgress float64   `json:"current_video_progress"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type DownloadedVideo struct {
	ID           string    `json:"id"`
	JobID        string    `json:"job_id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	OriginalURL  string    `json:"original_url"`
	Filename     string    `json:"filename"`
	FilePath     string    `json:"file_path"`
	FileSize     int64     `json:"file_size"`
	Platform     string    `json:"platform"`
	Status       string    `json:"status"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
