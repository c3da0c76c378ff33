package services

import "errors"

var (
	// ErrEmptyFileName rejects uploads and folder creations without a name.
	ErrEmptyFileName = errors.New("file name cannot be empty")

	// ErrFileNotFound signals a rename or share target that does not exist
	// for the owner. Non-mutating outcome, not a storage failure.
	ErrFileNotFound = errors.New("file or folder not found")

	// ErrNameExists is the rename outcome when the new name equals the
	// current one. The record is left untouched.
	ErrNameExists = errors.New("file name already exists")

	// ErrEmptyRecipient rejects share requests without a recipient email.
	ErrEmptyRecipient = errors.New("recipient email cannot be empty")
)
